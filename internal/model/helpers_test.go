package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/testutil"
	"github.com/roach88/pastas/internal/timeseries"
)

func day(n int) time.Time {
	return testutil.Epoch.AddDate(0, 0, n)
}

func presetStress(t *testing.T, s timeseries.Series, preset string) *timeseries.Stress {
	t.Helper()
	st, err := timeseries.NewPresetStress(s, preset)
	require.NoError(t, err)
	return st
}

func newTestModel(t *testing.T, observed timeseries.Series, opts ...Option) (*Model, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	base := []Option{
		WithSink(rec),
		WithClock(testutil.FixedNow(testutil.Epoch)),
		WithIDGenerator(NewFixedGenerator("fit-1", "fit-2", "fit-3")),
	}
	m, err := New(presetStress(t, observed, "oseries"), append(base, opts...)...)
	require.NoError(t, err)
	return m, rec
}

func stressModel(t *testing.T, name string, s timeseries.Series, preset string, rf rfunc.RFunc) stressmodel.Contributor {
	t.Helper()
	sm, err := stressmodel.NewStressModel(name, presetStress(t, s, preset), rf)
	require.NoError(t, err)
	return sm
}

func rechargeModel(t *testing.T, prec, evap timeseries.Series) stressmodel.Contributor {
	t.Helper()
	rm, err := stressmodel.NewRechargeModel("recharge",
		presetStress(t, prec, "prec"), presetStress(t, evap, "evap"), rfunc.NewExponential(true))
	require.NoError(t, err)
	return rm
}

// syntheticModel returns a model on the synthetic heads with a recharge
// contributor and a constant.
func syntheticModel(t *testing.T, n int, opts ...Option) (*Model, testutil.Synthetic, *Recorder) {
	t.Helper()
	syn, err := testutil.NewSynthetic(n)
	require.NoError(t, err)
	m, rec := newTestModel(t, syn.Head, opts...)
	require.NoError(t, m.AddStressModel(rechargeModel(t, syn.Prec, syn.Evap), false))
	return m, syn, rec
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }
