package core

import (
	"context"
	"fmt"
	"specimencore/pkg/domain"
)

// NewCoordinateRangeRule warns when stored coordinates fall outside decimal
// degree bounds. SetCoordinates already rejects such input, so this only fires
// for records written field by field.
func NewCoordinateRangeRule() domain.Rule {
	return coordinateRangeRule{}
}

type coordinateRangeRule struct{}

func (coordinateRangeRule) Name() string { return "coordinate_range" }

func (coordinateRangeRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		sp, ok := change.After.(domain.Specimen)
		if !ok {
			continue
		}
		lat, lon := sp.Latitude, sp.Longitude
		if (lat != nil && (*lat < -90 || *lat > 90)) || (lon != nil && (*lon < -180 || *lon > 180)) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "coordinate_range",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("specimen %s has out of range coordinates", sp.ID),
				Entity:   domain.EntitySpecimen,
				EntityID: sp.ID,
			})
		}
	}
	return res, nil
}
