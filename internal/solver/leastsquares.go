package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LeastSquares is a bounded Levenberg-Marquardt solver. Steps are projected
// onto the bounds; the Jacobian is computed by forward differences.
type LeastSquares struct {
	// MaxIter bounds the number of accepted or rejected steps; zero means
	// 200.
	MaxIter int
	// FTol stops when the relative cost reduction of an accepted step falls
	// below it; zero means 1e-10.
	FTol float64
	// XTol stops when the relative step length falls below it; zero means
	// 1e-10.
	XTol float64
	// Logger receives per-iteration debug output; nil means slog.Default().
	Logger *slog.Logger
}

func (s *LeastSquares) Name() string { return NameLeastSquares }

func (s *LeastSquares) settings() (int, float64, float64, *slog.Logger) {
	maxIter, ftol, xtol, logger := s.MaxIter, s.FTol, s.XTol, s.Logger
	if maxIter <= 0 {
		maxIter = 200
	}
	if ftol <= 0 {
		ftol = 1e-10
	}
	if xtol <= 0 {
		xtol = 1e-10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return maxIter, ftol, xtol, logger
}

// Solve minimizes the sum of squared residuals.
func (s *LeastSquares) Solve(ctx context.Context, p Problem) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	maxIter, ftol, xtol, logger := s.settings()

	ev := newEvaluator(p)
	x := make([]float64, len(ev.free))
	for k, i := range ev.free {
		x[k] = p.Initial[i]
	}
	p.clamp(ev.free, x)

	r, err := ev.eval(x)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate initial parameters: %w", err)
	}
	cost := sumSquares(r)
	if math.IsInf(cost, 1) {
		return Result{}, fmt.Errorf("evaluate initial parameters: residuals contain NaN")
	}

	var (
		lambda  = 1e-3
		jac     *mat.Dense
		success bool
		message = "maximum number of iterations reached"
	)
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		jac, err = ev.jacobian(ctx, x, r)
		if err != nil {
			return Result{}, err
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(len(r), r))

		xn, rn, costN, accepted, err := s.step(ev, &jtj, &grad, x, cost, &lambda)
		if err != nil {
			return Result{}, err
		}
		if !accepted {
			success = true
			message = "no further reduction of the cost possible"
			break
		}

		dx := make([]float64, len(x))
		floats.SubTo(dx, xn, x)
		reduction := cost - costN
		x, r, cost = xn, rn, costN
		logger.DebugContext(ctx, "least squares iteration",
			"iter", iter, "cost", cost, "lambda", lambda, "nfev", ev.count())

		if reduction <= ftol*cost {
			success = true
			message = "relative reduction of the cost below ftol"
			break
		}
		if floats.Norm(dx, 2) <= xtol*(xtol+floats.Norm(x, 2)) {
			success = true
			message = "relative step length below xtol"
			break
		}
	}

	// Jacobian at the final point for the covariance.
	jac, err = ev.jacobian(ctx, x, r)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Solver:  s.Name(),
		Optimal: p.expand(ev.free, x),
		Stderr:  ev.stderr(jac, r),
		Nfev:    ev.count(),
		Success: success,
		Message: message,
		Cost:    cost,
	}, nil
}

// step tries damped Gauss-Newton steps with increasing damping until one
// reduces the cost. It reports accepted=false when the damping grows beyond
// usefulness.
func (s *LeastSquares) step(ev *evaluator, jtj *mat.Dense, grad *mat.VecDense, x []float64, cost float64, lambda *float64) ([]float64, []float64, float64, bool, error) {
	k := len(x)
	for *lambda < 1e12 {
		a := mat.DenseCopyOf(jtj)
		for j := 0; j < k; j++ {
			d := jtj.At(j, j)
			if d == 0 {
				d = 1e-12
			}
			a.Set(j, j, d*(1+*lambda))
		}
		var delta mat.VecDense
		if err := delta.SolveVec(a, grad); err != nil {
			*lambda *= 10
			continue
		}
		xn := make([]float64, k)
		for j := range xn {
			xn[j] = x[j] - delta.AtVec(j)
		}
		ev.p.clamp(ev.free, xn)

		rn, err := ev.eval(xn)
		if err != nil {
			return nil, nil, 0, false, fmt.Errorf("evaluate step: %w", err)
		}
		if costN := sumSquares(rn); costN < cost {
			*lambda = math.Max(*lambda/10, 1e-12)
			return xn, rn, costN, true, nil
		}
		*lambda *= 10
	}
	return nil, nil, 0, false, nil
}
