// Package solver provides pluggable optimizers for calibrating models.
//
// A solver is a pure function of a Problem: it receives an objective that
// maps a full parameter vector to a residual vector, the initial values,
// bounds and vary flags, and returns an immutable Result. Only parameters
// with Vary set are optimized; fixed parameters stay at their initial value
// and get a NaN standard error.
//
// Objectives may be evaluated concurrently (see Problem.Workers) and must
// therefore not mutate shared state.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
)

// Registered solver names.
const (
	NameLeastSquares = "least_squares"
	NameNelderMead   = "nelder_mead"
)

// ErrEmptyProblem is returned when no parameter is free to vary.
var ErrEmptyProblem = errors.New("solver: no parameters to optimize")

// Objective maps a full parameter vector to a residual vector. The solver
// minimizes the sum of squared residuals; NaN residuals make a candidate
// unacceptable.
type Objective func(p []float64) ([]float64, error)

// Problem describes one calibration.
type Problem struct {
	Names   []string
	Initial []float64
	// Lower and Upper bound each parameter; NaN means unbounded.
	Lower []float64
	Upper []float64
	Vary  []bool

	Objective Objective

	// Workers bounds concurrent objective evaluations; zero means
	// GOMAXPROCS.
	Workers int
}

// Validate checks that all columns have the same length and an objective is
// set.
func (p Problem) Validate() error {
	n := len(p.Initial)
	if len(p.Names) != n || len(p.Lower) != n || len(p.Upper) != n || len(p.Vary) != n {
		return fmt.Errorf("solver: inconsistent problem columns (names %d, initial %d, lower %d, upper %d, vary %d)",
			len(p.Names), n, len(p.Lower), len(p.Upper), len(p.Vary))
	}
	if p.Objective == nil {
		return fmt.Errorf("solver: no objective")
	}
	if p.free() == nil {
		return ErrEmptyProblem
	}
	return nil
}

func (p Problem) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// free returns the positions of the parameters that vary.
func (p Problem) free() []int {
	var idx []int
	for i, v := range p.Vary {
		if v {
			idx = append(idx, i)
		}
	}
	return idx
}

// expand writes the free values x into a copy of the initial vector.
func (p Problem) expand(free []int, x []float64) []float64 {
	full := make([]float64, len(p.Initial))
	copy(full, p.Initial)
	for k, i := range free {
		full[i] = x[k]
	}
	return full
}

// clamp limits the free values x to their bounds in place.
func (p Problem) clamp(free []int, x []float64) {
	for k, i := range free {
		if lo := p.Lower[i]; !math.IsNaN(lo) && x[k] < lo {
			x[k] = lo
		}
		if hi := p.Upper[i]; !math.IsNaN(hi) && x[k] > hi {
			x[k] = hi
		}
	}
}

// Result is the outcome of one solve.
type Result struct {
	Solver  string
	Optimal []float64
	Stderr  []float64
	Nfev    int
	Success bool
	Message string
	// Cost is the final sum of squared residuals.
	Cost float64
}

// Solver calibrates a Problem.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p Problem) (Result, error)
}

// New returns the solver registered under name with default settings.
func New(name string) (Solver, error) {
	switch name {
	case NameLeastSquares, "":
		return &LeastSquares{}, nil
	case NameNelderMead:
		return &NelderMead{}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q (available: %v)", name, Names())
	}
}

// Names lists the registered solvers.
func Names() []string {
	names := []string{NameLeastSquares, NameNelderMead}
	sort.Strings(names)
	return names
}

// sumSquares returns the sum of squared residuals, or +Inf when any is NaN.
func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}
