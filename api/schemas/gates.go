package schemas

import "time"

// -- Validation Gate Schemas --

// GatePhase names one of the four ordered validation checkpoints.
type GatePhase string

const (
	PhasePreCapture     GatePhase = "pre-capture"
	PhasePostCapture    GatePhase = "post-capture"
	PhasePreGeneration  GatePhase = "pre-generation"
	PhasePostGeneration GatePhase = "post-generation"
)

// GatePhases lists the phases in pipeline order.
var GatePhases = []GatePhase{
	PhasePreCapture,
	PhasePostCapture,
	PhasePreGeneration,
	PhasePostGeneration,
}

// GateCheck is one expected/actual comparison inside a gate. Advisory checks
// (Required == false) surface as warnings and never block.
type GateCheck struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Required bool   `json:"required"`
}

// ValidationResult is the full, ordered outcome of one gate invocation.
// It is ephemeral: recomputed on every invocation and never treated as a
// source of truth (the persisted artifacts are).
type ValidationResult struct {
	Phase       GatePhase   `json:"phase"`
	EvaluatedAt time.Time   `json:"evaluatedAt"`
	Checks      []GateCheck `json:"checks"`
	Passed      bool        `json:"passed"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// Finalize recomputes Passed as the AND over required checks. It must be
// called after every check has been appended; gates never stop at the first
// failing check, so operators get the complete failure picture in one pass.
func (r *ValidationResult) Finalize() {
	r.Passed = true
	for _, c := range r.Checks {
		if c.Required && !c.Passed {
			r.Passed = false
		}
	}
}

// FailedChecks returns the required checks that did not pass.
func (r *ValidationResult) FailedChecks() []GateCheck {
	var failed []GateCheck
	for _, c := range r.Checks {
		if c.Required && !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}
