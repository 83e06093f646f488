package core

import (
	"context"
	"fmt"
	"specimencore/pkg/domain"
)

// NewPhotoCapRule blocks transactions that leave a specimen with more than
// domain.MaxSpecimenPhotos photographs.
func NewPhotoCapRule() domain.Rule {
	return photoCapRule{}
}

type photoCapRule struct{}

func (photoCapRule) Name() string { return "photo_cap" }

func (photoCapRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		sp, ok := change.After.(domain.Specimen)
		if !ok || change.Entity != domain.EntitySpecimen {
			continue
		}
		if n := len(sp.Photos); n > domain.MaxSpecimenPhotos {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "photo_cap",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("specimen %s holds %d photographs, limit is %d", sp.ID, n, domain.MaxSpecimenPhotos),
				Entity:   domain.EntitySpecimen,
				EntityID: sp.ID,
			})
		}
	}
	return res, nil
}
