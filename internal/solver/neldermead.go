package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead minimizes the sum of squared residuals with the derivative-free
// simplex method. Bounds are enforced by clamping candidates before
// evaluation. Standard errors come from the Jacobian at the optimum.
type NelderMead struct {
	// MaxNfev bounds objective evaluations; zero means 2000 per free
	// parameter.
	MaxNfev int
	// Logger receives summary debug output; nil means slog.Default().
	Logger *slog.Logger
}

func (s *NelderMead) Name() string { return NameNelderMead }

// Solve minimizes the sum of squared residuals.
func (s *NelderMead) Solve(ctx context.Context, p Problem) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ev := newEvaluator(p)
	maxNfev := s.MaxNfev
	if maxNfev <= 0 {
		maxNfev = 2000 * len(ev.free)
	}
	x0 := make([]float64, len(ev.free))
	for k, i := range ev.free {
		x0[k] = p.Initial[i]
	}
	p.clamp(ev.free, x0)

	var (
		mu      sync.Mutex
		evalErr error
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			xc := make([]float64, len(x))
			copy(xc, x)
			p.clamp(ev.free, xc)
			r, err := ev.eval(xc)
			if err != nil {
				mu.Lock()
				if evalErr == nil {
					evalErr = err
				}
				mu.Unlock()
				return math.Inf(1)
			}
			return sumSquares(r)
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxNfev,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-10,
			Iterations: 20 * len(ev.free),
		},
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if evalErr != nil {
		return Result{}, fmt.Errorf("evaluate objective: %w", evalErr)
	}
	if res == nil {
		return Result{}, fmt.Errorf("nelder-mead: %w", err)
	}

	x := make([]float64, len(res.X))
	copy(x, res.X)
	p.clamp(ev.free, x)
	r, rerr := ev.eval(x)
	if rerr != nil {
		return Result{}, fmt.Errorf("evaluate optimum: %w", rerr)
	}
	jac, jerr := ev.jacobian(ctx, x, r)
	if jerr != nil {
		return Result{}, jerr
	}

	success := err == nil && converged(res.Status)
	message := res.Status.String()
	if err != nil {
		message = err.Error()
	}
	logger.DebugContext(ctx, "nelder-mead finished",
		"status", res.Status.String(), "cost", res.F, "nfev", ev.count())

	return Result{
		Solver:  s.Name(),
		Optimal: p.expand(ev.free, x),
		Stderr:  ev.stderr(jac, r),
		Nfev:    ev.count(),
		Success: success,
		Message: message,
		Cost:    sumSquares(r),
	}, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.StepConvergence, optimize.FunctionThreshold:
		return true
	default:
		return false
	}
}
