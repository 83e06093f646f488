package workflow

import (
	"specimencore/pkg/domain"
	"strings"
	"sync"
)

// MinQualityScore is the score every specimen must exceed to pass quality review.
const MinQualityScore = 0.5

// Subject is the data a validation gate inspects. Either field may be nil.
type Subject struct {
	Collection     *domain.Collection
	ActiveSpecimen *domain.Specimen
}

// Machine tracks the current step. Transitions never fail: moves past either
// end are ignored. Validation is a separate predicate; front ends consult it
// before calling Advance, and JumpTo bypasses it.
type Machine struct {
	mu      sync.RWMutex
	current Step
}

// NewMachine starts at StepSetup.
func NewMachine() *Machine { return &Machine{} }

// NewMachineAt starts at step, or StepSetup when step is invalid.
func NewMachineAt(step Step) *Machine {
	m := &Machine{}
	m.JumpTo(step)
	return m
}

// Current returns the current step.
func (m *Machine) Current() Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Advance moves to the next step and reports whether it moved.
func (m *Machine) Advance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current >= StepCompletion {
		return false
	}
	m.current++
	return true
}

// Retreat moves to the previous step and reports whether it moved.
func (m *Machine) Retreat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current <= StepSetup {
		return false
	}
	m.current--
	return true
}

// JumpTo moves directly to step without validation. Invalid steps are ignored.
func (m *Machine) JumpTo(step Step) bool {
	if !step.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = step
	return true
}

// IsTerminal reports whether the workflow reached StepCompletion.
func (m *Machine) IsTerminal() bool { return m.Current() == StepCompletion }

// CanRetreat reports whether Retreat would move.
func (m *Machine) CanRetreat() bool { return m.Current() != StepSetup }

// CanAdvance reports whether the user may advance: the gate passes and the
// workflow is not finished.
func (m *Machine) CanAdvance(subject Subject) bool {
	step := m.Current()
	return step != StepCompletion && Validate(step, subject)
}

// ValidateCurrentStep evaluates the gate of the current step.
func (m *Machine) ValidateCurrentStep(subject Subject) bool {
	return Validate(m.Current(), subject)
}

// Progress is the fraction of the workflow reached, 0 at setup and 1 at completion.
func (m *Machine) Progress() float64 {
	return float64(m.Current()) / float64(StepCompletion)
}

// Validate is the pure gate predicate for step.
func Validate(step Step, subject Subject) bool {
	switch step {
	case StepSetup:
		return subject.Collection != nil && subject.Collection.SetupComplete()
	case StepDrawerOverview:
		return subject.Collection != nil && subject.Collection.HasOverviewImage()
	case StepSpecimenDocumentation:
		// no active specimen fails the gate
		sp := subject.ActiveSpecimen
		return sp != nil && sp.HasPhotos() && strings.TrimSpace(sp.Label) != ""
	case StepQualityReview:
		if subject.Collection == nil {
			return false
		}
		for _, sp := range subject.Collection.Specimens {
			if sp.QualityScore <= MinQualityScore {
				return false
			}
		}
		return true
	default:
		return true
	}
}
