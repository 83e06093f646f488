package core

import "specimencore/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewPhotoCapRule())
	engine.Register(NewCompletionMonotonicRule())
	engine.Register(NewCoordinateRangeRule())
	return engine
}
