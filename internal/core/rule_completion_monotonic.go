package core

import (
	"context"
	"fmt"
	"specimencore/pkg/domain"
)

// NewCompletionMonotonicRule blocks any update that clears a collection's
// completion flag once set.
func NewCompletionMonotonicRule() domain.Rule {
	return completionMonotonicRule{}
}

type completionMonotonicRule struct{}

func (completionMonotonicRule) Name() string { return "completion_monotonic" }

func (completionMonotonicRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityCollection || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Collection)
		after, okAfter := change.After.(domain.Collection)
		if !okBefore || !okAfter {
			continue
		}
		if before.IsComplete && !after.IsComplete {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "completion_monotonic",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("collection %s is complete and cannot be reopened", after.ID),
				Entity:   domain.EntityCollection,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
