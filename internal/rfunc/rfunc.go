// Package rfunc implements the response functions that turn a stress into a
// contribution by convolution.
//
// A response function is described by its step response: the contribution
// after t days of a unit stress switched on at t=0. The block response is the
// first difference of the step response and is what stress models convolve
// with. Responses are evaluated at t = dt, 2dt, ... up to the time at which
// the step response reaches Cutoff of its final value.
package rfunc

import (
	"fmt"
	"math"

	"github.com/roach88/pastas/internal/param"
)

// DefaultCutoff is the fraction of the final step response at which kernels
// are truncated.
const DefaultCutoff = 0.999

// MaxSteps bounds the kernel length in steps.
const MaxSteps = 100000

// RFunc is a parameterized response function.
type RFunc interface {
	// Kind returns the registered name, e.g. "Exponential".
	Kind() string
	// NParam returns the number of parameters.
	NParam() int
	// Parameters returns the initial parameter rows for a component. The
	// gain bounds are scaled by the mean stress.
	Parameters(component string, meanStress float64) param.Table
	// Step returns the step response at t = dt, 2dt, ...
	Step(p []float64, dt float64) []float64
	// Block returns the block response at t = dt, 2dt, ...
	Block(p []float64, dt float64) []float64
	// Dump returns the serializable description.
	Dump() Dump
}

// Dump is the serialized form of a response function.
type Dump struct {
	Kind   string  `json:"kind" yaml:"kind" validate:"required,oneof=Exponential Gamma One"`
	Up     *bool   `json:"up,omitempty" yaml:"up,omitempty"`
	Cutoff float64 `json:"cutoff,omitempty" yaml:"cutoff,omitempty" validate:"omitempty,gt=0,lt=1"`
}

// Load reconstructs a response function from its dump. A nil Up means a
// positive response.
func Load(d Dump) (RFunc, error) {
	up := true
	if d.Up != nil {
		up = *d.Up
	}
	cutoff := d.Cutoff
	if cutoff == 0 {
		cutoff = DefaultCutoff
	}
	switch d.Kind {
	case "Exponential":
		return &Exponential{Up: up, Cutoff: cutoff}, nil
	case "Gamma":
		return &Gamma{Up: up, Cutoff: cutoff}, nil
	case "One":
		return &One{Up: up}, nil
	default:
		return nil, fmt.Errorf("unknown response function %q", d.Kind)
	}
}

// Kinds lists the registered response functions.
func Kinds() []string {
	return []string{"Exponential", "Gamma", "One"}
}

// times returns dt, 2dt, ... covering tmax, with at least one sample.
func times(tmax, dt float64) []float64 {
	n := 1
	if !math.IsNaN(tmax) && !math.IsInf(tmax, 0) && tmax > dt {
		n = int(math.Ceil(tmax / dt))
	}
	if n > MaxSteps {
		n = MaxSteps
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i+1) * dt
	}
	return t
}

// blockFromStep returns the first difference of s with a leading zero.
func blockFromStep(s []float64) []float64 {
	b := make([]float64, len(s))
	prev := 0.0
	for i, v := range s {
		b[i] = v - prev
		prev = v
	}
	return b
}

// gainScale returns the magnitude used to scale gain bounds.
func gainScale(meanStress float64) float64 {
	m := math.Abs(meanStress)
	if math.IsNaN(m) || m == 0 {
		return 1
	}
	return m
}

// gain returns the gain row for a response, signed by up.
func gain(component string, up bool, meanStress float64) param.Spec {
	m := gainScale(meanStress)
	if up {
		return param.New(component, "A", 1/m, 0, 100/m)
	}
	return param.New(component, "A", -1/m, -100/m, 0)
}

func boolPtr(b bool) *bool { return &b }
