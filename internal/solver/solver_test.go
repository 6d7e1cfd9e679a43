package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineProblem fits y = a + b*t to noisy points with known solution.
func lineProblem() Problem {
	ts := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	noise := []float64{0.1, -0.1, 0.05, -0.05, 0.1, -0.1, 0.05, -0.05}
	ys := make([]float64, len(ts))
	for i, t := range ts {
		ys[i] = 2 + 0.5*t + noise[i]
	}
	return Problem{
		Names:   []string{"a", "b"},
		Initial: []float64{0, 0},
		Lower:   []float64{math.NaN(), math.NaN()},
		Upper:   []float64{math.NaN(), math.NaN()},
		Vary:    []bool{true, true},
		Objective: func(p []float64) ([]float64, error) {
			r := make([]float64, len(ts))
			for i, t := range ts {
				r[i] = ys[i] - (p[0] + p[1]*t)
			}
			return r, nil
		},
		Workers: 2,
	}
}

// decayProblem fits y = A exp(-t/a) without noise.
func decayProblem() Problem {
	ts := make([]float64, 30)
	ys := make([]float64, 30)
	for i := range ts {
		ts[i] = float64(i)
		ys[i] = 3 * math.Exp(-ts[i]/7)
	}
	return Problem{
		Names:   []string{"A", "a"},
		Initial: []float64{1, 2},
		Lower:   []float64{0, 0.01},
		Upper:   []float64{10, 100},
		Vary:    []bool{true, true},
		Objective: func(p []float64) ([]float64, error) {
			r := make([]float64, len(ts))
			for i, t := range ts {
				r[i] = ys[i] - p[0]*math.Exp(-t/p[1])
			}
			return r, nil
		},
	}
}

func TestLeastSquares_Line(t *testing.T) {
	res, err := (&LeastSquares{}).Solve(context.Background(), lineProblem())
	require.NoError(t, err)

	assert.True(t, res.Success, res.Message)
	assert.Equal(t, NameLeastSquares, res.Solver)
	assert.InDelta(t, 2.0, res.Optimal[0], 0.1)
	assert.InDelta(t, 0.5, res.Optimal[1], 0.05)
	assert.Greater(t, res.Nfev, 0)
	for _, se := range res.Stderr {
		assert.False(t, math.IsNaN(se))
		assert.Greater(t, se, 0.0)
	}
}

func TestLeastSquares_Decay(t *testing.T) {
	res, err := (&LeastSquares{}).Solve(context.Background(), decayProblem())
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDelta(t, 3.0, res.Optimal[0], 1e-4)
	assert.InDelta(t, 7.0, res.Optimal[1], 1e-3)
	assert.Less(t, res.Cost, 1e-8)
}

func TestLeastSquares_FixedParameter(t *testing.T) {
	p := decayProblem()
	p.Initial = []float64{3, 2}
	p.Vary = []bool{false, true}

	res, err := (&LeastSquares{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Optimal[0])
	assert.InDelta(t, 7.0, res.Optimal[1], 1e-3)
	assert.True(t, math.IsNaN(res.Stderr[0]))
}

func TestLeastSquares_RespectsBounds(t *testing.T) {
	p := decayProblem()
	p.Upper = []float64{2, 100}

	res, err := (&LeastSquares{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Optimal[0], 2.0)
}

func TestNelderMead_Decay(t *testing.T) {
	res, err := (&NelderMead{}).Solve(context.Background(), decayProblem())
	require.NoError(t, err)
	assert.Equal(t, NameNelderMead, res.Solver)
	assert.InDelta(t, 3.0, res.Optimal[0], 1e-2)
	assert.InDelta(t, 7.0, res.Optimal[1], 1e-1)
	assert.Len(t, res.Stderr, 2)
}

func TestSolve_ObjectiveError(t *testing.T) {
	boom := errors.New("boom")
	p := lineProblem()
	p.Objective = func([]float64) ([]float64, error) { return nil, boom }

	_, err := (&LeastSquares{}).Solve(context.Background(), p)
	assert.ErrorIs(t, err, boom)

	_, err = (&NelderMead{}).Solve(context.Background(), p)
	assert.ErrorIs(t, err, boom)
}

func TestSolve_Validation(t *testing.T) {
	p := lineProblem()
	p.Vary = []bool{false, false}
	_, err := (&LeastSquares{}).Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrEmptyProblem)

	p = lineProblem()
	p.Lower = p.Lower[:1]
	_, err = (&LeastSquares{}).Solve(context.Background(), p)
	assert.Error(t, err)
}

func TestSolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&LeastSquares{}).Solve(ctx, lineProblem())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := New("differential_evolution")
	assert.Error(t, err)
}

func TestInstrument_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := Instrument(&LeastSquares{}, m)

	res, err := s.Solve(context.Background(), lineProblem())
	require.NoError(t, err)

	assert.Equal(t, float64(res.Nfev), testutil.ToFloat64(m.Evaluations.WithLabelValues(NameLeastSquares)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fits.WithLabelValues(NameLeastSquares, "true")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}
