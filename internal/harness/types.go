package harness

import (
	"time"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/timeseries"
)

// StepOutcome records how one step ended.
type StepOutcome struct {
	Op    string `json:"op"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

// FitSnapshot is the reproducible part of a fit result. Parameter values
// depend on the solver and stay out of golden files.
type FitSnapshot struct {
	ID      string          `json:"id"`
	Solver  string          `json:"solver"`
	Success bool            `json:"success"`
	NObs    int             `json:"nobs"`
	Tmin    time.Time       `json:"tmin"`
	Tmax    time.Time       `json:"tmax"`
	Freq    timeseries.Freq `json:"freq"`
	Warmup  int             `json:"warmup"`
	Noise   bool            `json:"noise"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step ended as expected and all assertions hold.
	Pass bool `json:"pass"`

	// Steps lists the outcome of every executed step.
	Steps []StepOutcome `json:"steps"`

	// Freq is the working frequency after the last step.
	Freq timeseries.Freq `json:"freq"`

	// Session describes the last session opened by initialize or solve.
	Session *model.SessionInfo `json:"session,omitempty"`

	// Parameters are the registry names after the last step.
	Parameters []string `json:"parameters"`

	// Notices are the diagnostic codes in emission order.
	Notices []string `json:"notices"`

	// Fit is the last committed fit.
	Fit *FitSnapshot `json:"fit,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// registry is kept for parameter assertions.
	registry *model.Registry
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Steps:      []StepOutcome{},
		Parameters: []string{},
		Notices:    []string{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// noticeCount counts occurrences of code.
func (r *Result) noticeCount(code string) int {
	n := 0
	for _, c := range r.Notices {
		if c == code {
			n++
		}
	}
	return n
}

func snapshotFit(f *model.FitResult) *FitSnapshot {
	if f == nil {
		return nil
	}
	return &FitSnapshot{
		ID:      f.ID,
		Solver:  f.Solver,
		Success: f.Success,
		NObs:    f.NObs,
		Tmin:    f.Tmin,
		Tmax:    f.Tmax,
		Freq:    f.Freq,
		Warmup:  f.Warmup,
		Noise:   f.Noise,
	}
}
