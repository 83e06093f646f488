// Package workflow implements the fixed, linear field-collection workflow.
package workflow

import "strings"

// Step is one stage of the collection workflow.
type Step int

// Workflow steps in order. StepSetup is initial and StepCompletion terminal.
const (
	StepSetup Step = iota
	StepDrawerOverview
	StepSpecimenIdentification
	StepSpecimenDocumentation
	StepFieldBookCapture
	StepVoiceAnnotation
	StepQualityReview
	StepCompletion
)

var stepMeta = [...]struct {
	name  string
	title string
}{
	StepSetup:                  {"setup", "Collection Setup"},
	StepDrawerOverview:         {"drawerOverview", "Drawer Overview"},
	StepSpecimenIdentification: {"specimenIdentification", "Specimen Identification"},
	StepSpecimenDocumentation:  {"specimenDocumentation", "Specimen Documentation"},
	StepFieldBookCapture:       {"fieldBookCapture", "Field Book Capture"},
	StepVoiceAnnotation:        {"voiceAnnotation", "Voice Annotation"},
	StepQualityReview:          {"qualityReview", "Quality Review"},
	StepCompletion:             {"completion", "Completion"},
}

// Steps returns every step in workflow order.
func Steps() []Step {
	out := make([]Step, len(stepMeta))
	for i := range stepMeta {
		out[i] = Step(i)
	}
	return out
}

// Valid reports whether s names a defined step.
func (s Step) Valid() bool { return s >= StepSetup && s <= StepCompletion }

// String returns the stable identifier used in persisted session state.
func (s Step) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stepMeta[s].name
}

// Title returns the display title.
func (s Step) Title() string {
	if !s.Valid() {
		return ""
	}
	return stepMeta[s].title
}

// Number is the 1-based position shown to users.
func (s Step) Number() int { return int(s) + 1 }

// ParseStep accepts the identifier (case-insensitive) or the 1-based number.
func ParseStep(raw string) (Step, bool) {
	raw = strings.TrimSpace(raw)
	for i, m := range stepMeta {
		if strings.EqualFold(raw, m.name) {
			return Step(i), true
		}
	}
	if len(raw) == 1 && raw[0] >= '1' && raw[0] <= byte('0'+len(stepMeta)) {
		return Step(raw[0] - '1'), true
	}
	return StepSetup, false
}
