package solver

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// evaluator wraps a Problem's objective with an evaluation counter.
type evaluator struct {
	p    Problem
	free []int
	nfev atomic.Int64
}

func newEvaluator(p Problem) *evaluator {
	return &evaluator{p: p, free: p.free()}
}

// eval evaluates the objective at free values x.
func (e *evaluator) eval(x []float64) ([]float64, error) {
	e.nfev.Add(1)
	return e.p.Objective(e.p.expand(e.free, x))
}

func (e *evaluator) count() int {
	return int(e.nfev.Load())
}

// jacobian returns the forward-difference Jacobian of the residuals r0 at
// x, one row per residual and one column per free parameter. Columns are
// evaluated concurrently. A step that would cross the upper bound is taken
// backwards instead.
func (e *evaluator) jacobian(ctx context.Context, x, r0 []float64) (*mat.Dense, error) {
	m, k := len(r0), len(x)
	jac := mat.NewDense(m, k, nil)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.p.workers())
	for j := 0; j < k; j++ {
		j := j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			xj := make([]float64, k)
			copy(xj, x)
			h := math.Sqrt(2.220446049250313e-16) * math.Max(math.Abs(x[j]), 1)
			if hi := e.p.Upper[e.free[j]]; !math.IsNaN(hi) && x[j]+h > hi {
				h = -h
			}
			xj[j] += h
			r, err := e.eval(xj)
			if err != nil {
				return fmt.Errorf("jacobian column %s: %w", e.p.Names[e.free[j]], err)
			}
			if len(r) != m {
				return fmt.Errorf("jacobian column %s: residual length changed from %d to %d",
					e.p.Names[e.free[j]], m, len(r))
			}
			for i := 0; i < m; i++ {
				d := (r[i] - r0[i]) / h
				if math.IsNaN(d) {
					d = 0
				}
				jac.Set(i, j, d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jac, nil
}

// stderr returns the standard errors from the covariance
// inv(JᵀJ) * SSR / (m - k), expanded to the full parameter vector with NaN
// for fixed parameters. A singular JᵀJ yields NaN for every parameter.
func (e *evaluator) stderr(jac *mat.Dense, r []float64) []float64 {
	out := make([]float64, len(e.p.Initial))
	for i := range out {
		out[i] = math.NaN()
	}
	m, k := jac.Dims()
	if m <= k {
		return out
	}
	var jtj, cov mat.Dense
	jtj.Mul(jac.T(), jac)
	if err := cov.Inverse(&jtj); err != nil {
		return out
	}
	s2 := sumSquares(r) / float64(m-k)
	for j, i := range e.free {
		v := cov.At(j, j) * s2
		if v >= 0 {
			out[i] = math.Sqrt(v)
		}
	}
	return out
}
