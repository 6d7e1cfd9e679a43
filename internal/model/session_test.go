package model

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pastas/internal/solver"
	"github.com/roach88/pastas/internal/testutil"
	"github.com/roach88/pastas/internal/timeseries"
)

// stubSolver returns a fixed result and records the problem it got.
type stubSolver struct {
	result  solver.Result
	err     error
	problem solver.Problem
	during  func()
}

func (s *stubSolver) Name() string { return "stub" }

func (s *stubSolver) Solve(_ context.Context, p solver.Problem) (solver.Result, error) {
	s.problem = p
	if s.during != nil {
		s.during()
	}
	if s.err != nil {
		return solver.Result{}, s.err
	}
	r := s.result
	if r.Optimal == nil {
		r.Optimal = append([]float64(nil), p.Initial...)
		r.Stderr = make([]float64, len(p.Initial))
		r.Success = true
	}
	return r, nil
}

// nearTruth moves the initial values of the synthetic model close to the
// generating parameters so the solver starts in the right basin.
func nearTruth(t *testing.T, m *Model) {
	t.Helper()
	require.NoError(t, m.SetParameter("recharge_A", Override{Initial: floatPtr(0.5)}))
	require.NoError(t, m.SetParameter("recharge_a", Override{Initial: floatPtr(40)}))
	require.NoError(t, m.SetParameter("recharge_f", Override{Initial: floatPtr(-1)}))
}

func TestParseNoiseMode(t *testing.T) {
	tests := []struct {
		in   string
		want NoiseMode
	}{
		{"", NoiseAuto},
		{"auto", NoiseAuto},
		{"on", NoiseOn},
		{"true", NoiseOn},
		{"off", NoiseOff},
		{"false", NoiseOff},
	}
	for _, tt := range tests {
		got, err := ParseNoiseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseNoiseMode("maybe")
	assert.True(t, IsConfigurationError(err))
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "SessionState(9)", SessionState(9).String())
}

func TestInitialize_SetsSettings(t *testing.T) {
	m, syn, _ := syntheticModel(t, 500)

	require.NoError(t, m.Initialize(InitOptions{Warmup: intPtr(366)}))

	s := m.Settings()
	assert.Equal(t, syn.Head.Tmin(), s.Tmin)
	assert.Equal(t, syn.Head.Tmax(), s.Tmax)
	assert.Equal(t, 366, s.Warmup)
	assert.True(t, s.Noise)
	assert.Equal(t, StateInitialized, m.State())
	assert.Equal(t, testutil.Epoch, m.session.axis[0])
	assert.Equal(t, syn.Head.Len(), m.session.calib.Len())
}

func TestInitialize_ExplicitFrequencyFixesIt(t *testing.T) {
	m, _, _ := syntheticModel(t, 500)
	require.NoError(t, m.Initialize(InitOptions{Freq: timeseries.Daily, Warmup: intPtr(10)}))
	assert.Equal(t, timeseries.Daily, m.Settings().Freq)
	assert.False(t, m.freqAuto)
}

func TestInitialize_InvalidBounds(t *testing.T) {
	m, syn, _ := syntheticModel(t, 500)

	err := m.Initialize(InitOptions{Tmin: syn.Head.Tmax(), Tmax: syn.Head.Tmin()})
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, StateUninitialized, m.State())

	err = m.Initialize(InitOptions{Warmup: intPtr(-3)})
	assert.True(t, IsConfigurationError(err))
}

func TestInitialize_NoiseUnavailable(t *testing.T) {
	m, _, rec := syntheticModel(t, 500, WithNoise(false))

	require.NoError(t, m.Initialize(InitOptions{Noise: NoiseOn, Warmup: intPtr(366)}))
	assert.True(t, rec.Has(NoticeNoiseUnavailable))
	assert.False(t, m.Settings().Noise)
}

func TestSolve_RecoversGeneratingParameters(t *testing.T) {
	m, _, rec := syntheticModel(t, 730, WithNoise(false))
	nearTruth(t, m)

	fit, err := m.Solve(context.Background(), nil, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.NoError(t, err)

	assert.Equal(t, "fit-1", fit.ID)
	assert.Equal(t, solver.NameLeastSquares, fit.Solver)
	assert.True(t, fit.Success, fit.Message)
	assert.Equal(t, []string{"recharge_A", "recharge_a", "recharge_f", "constant_d"}, fit.Names)
	for i, want := range testutil.RechargeParams {
		assert.InEpsilon(t, want, fit.Optimal[i], 0.05, fit.Names[i])
	}
	assert.Equal(t, testutil.Epoch, fit.Created)

	assert.Equal(t, StateCommitted, m.State())
	assert.Same(t, fit, m.Fit())
	assert.Equal(t, solver.NameLeastSquares, m.Settings().Solver)
	row, _ := m.Registry().Row("recharge_a")
	assert.Equal(t, fit.Optimal[1], row.Optimal)
	assert.False(t, rec.Has(NoticeSolverNotConverged))
}

func TestSolve_UsesInnovationsWithNoise(t *testing.T) {
	m, _, _ := syntheticModel(t, 500)
	stub := &stubSolver{}

	fit, err := m.Solve(context.Background(), stub, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.NoError(t, err)
	assert.True(t, fit.Noise)
	assert.Equal(t, []string{"recharge_A", "recharge_a", "recharge_f", "constant_d", "noise_alpha"}, stub.problem.Names)

	r, err := stub.problem.Objective(stub.problem.Initial)
	require.NoError(t, err)
	v, err := m.Innovations(stub.problem.Initial, fit.Tmin, fit.Tmax, fit.Freq)
	require.NoError(t, err)
	assert.Equal(t, v.Values, r)
}

func TestSolve_WeightsScaleObjective(t *testing.T) {
	m, syn, _ := syntheticModel(t, 500, WithNoise(false))
	weights := timeseries.MustNew("w", []time.Time{syn.Head.Index[0], syn.Head.Index[1]}, []float64{0, 3})
	stub := &stubSolver{}

	_, err := m.Solve(context.Background(), stub, SolveOptions{
		InitOptions: InitOptions{Warmup: intPtr(366)},
		Weights:     &weights,
	})
	require.NoError(t, err)

	r, err := stub.problem.Objective(stub.problem.Initial)
	require.NoError(t, err)
	res, err := m.Residuals(stub.problem.Initial, m.Settings().Tmin, m.Settings().Tmax, "")
	require.NoError(t, err)

	assert.Equal(t, 0.0, r[0])
	assert.InDelta(t, 3*res.Values[1], r[1], 1e-12)
	assert.InDelta(t, res.Values[2], r[2], 1e-12)
}

func TestSolve_NotConvergedCommits(t *testing.T) {
	m, _, rec := syntheticModel(t, 500, WithNoise(false))
	stub := &stubSolver{result: solver.Result{
		Optimal: []float64{1, 50, -1, 9},
		Stderr:  []float64{0.1, 1, 0.1, math.NaN()},
		Message: "maximum iterations reached",
	}}

	fit, err := m.Solve(context.Background(), stub, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.NoError(t, err)

	assert.False(t, fit.Success)
	assert.True(t, rec.Has(NoticeSolverNotConverged))
	assert.Equal(t, StateCommitted, m.State())
	assert.Equal(t, []float64{1, 50, -1, 9}, m.Registry().Optimal())
}

func TestSolve_ErrorDiscardsSession(t *testing.T) {
	m, _, _ := syntheticModel(t, 500, WithNoise(false))
	boom := errors.New("boom")

	_, err := m.Solve(context.Background(), &stubSolver{err: boom}, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StateUninitialized, m.State())
	assert.Nil(t, m.Fit())
	for _, row := range m.Registry().Rows() {
		assert.False(t, row.HasOptimal())
	}
}

func TestSolve_StructuralChangesRefusedWhileSolving(t *testing.T) {
	m, _, _ := syntheticModel(t, 500, WithNoise(false))
	var during error
	var state SessionState
	stub := &stubSolver{during: func() {
		state = m.State()
		during = m.RemoveConstant()
	}}

	_, err := m.Solve(context.Background(), stub, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.NoError(t, err)

	assert.Equal(t, StateSolving, state)
	assert.True(t, IsInvalidStateError(during))
	assert.NotNil(t, m.Constant())
}

func TestSolve_KeepOptimalStartsFromPreviousFit(t *testing.T) {
	m, _, _ := syntheticModel(t, 500, WithNoise(false))
	first := &stubSolver{result: solver.Result{
		Optimal: []float64{1, 50, -1, 9},
		Stderr:  make([]float64, 4),
		Success: true,
	}}
	_, err := m.Solve(context.Background(), first, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.NoError(t, err)

	second := &stubSolver{}
	fit, err := m.Solve(context.Background(), second, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366), KeepOptimal: true}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 50, -1, 9}, second.problem.Initial)
	assert.Equal(t, "fit-2", fit.ID)
}

func TestSession_Info(t *testing.T) {
	m, syn, _ := syntheticModel(t, 500, WithNoise(false))
	_, ok := m.Session()
	assert.False(t, ok)

	require.NoError(t, m.Initialize(InitOptions{Warmup: intPtr(366)}))
	info, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch, info.AxisStart)
	assert.Equal(t, syn.Head.Tmax(), info.AxisEnd)
	assert.Equal(t, len(m.session.axis), info.AxisLen)
	assert.Equal(t, syn.Head.Len(), info.NObs)
	assert.Equal(t, timeseries.Daily, info.Freq)
	assert.False(t, info.Interpolate)
	assert.False(t, info.Noise)

	_, err := m.Solve(context.Background(), &stubSolver{}, SolveOptions{InitOptions: InitOptions{Warmup: intPtr(366)}})
	require.NoError(t, err)
	_, ok = m.Session()
	assert.False(t, ok, "a committed solve closes the session")
}
