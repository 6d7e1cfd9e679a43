package store

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/testutil"
	"github.com/roach88/pastas/internal/timeseries"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testModel builds a small model with one exponential contributor and a
// constant.
func testModel(t *testing.T, name string) *model.Model {
	t.Helper()
	head := testutil.Daily("head", testutil.Epoch, []float64{1, 1.2, 1.1, 1.4, 1.3, 1.2, 1.5, 1.6})
	obs, err := timeseries.NewPresetStress(head, "oseries")
	if err != nil {
		t.Fatalf("NewPresetStress() failed: %v", err)
	}
	m, err := model.New(obs, model.WithName(name), model.WithNoise(false), model.WithSink(model.NewRecorder()))
	if err != nil {
		t.Fatalf("model.New() failed: %v", err)
	}

	prec, err := timeseries.NewPresetStress(testutil.Precipitation(testutil.Epoch.AddDate(0, 0, -30), 40), "prec")
	if err != nil {
		t.Fatalf("NewPresetStress() failed: %v", err)
	}
	sm, err := stressmodel.NewStressModel("rain", prec, rfunc.NewExponential(true))
	if err != nil {
		t.Fatalf("NewStressModel() failed: %v", err)
	}
	if err := m.AddStressModel(sm, false); err != nil {
		t.Fatalf("AddStressModel() failed: %v", err)
	}
	return m
}

// testFit returns a fit over the registry of m with the given id.
func testFit(m *model.Model, id string, created time.Time) *model.FitResult {
	rows := m.Registry().Rows()
	fit := &model.FitResult{
		ID:      id,
		Solver:  "least_squares",
		Nfev:    12,
		Success: true,
		Message: "converged",
		Cost:    0.25,
		Tmin:    testutil.Epoch,
		Tmax:    testutil.Epoch.AddDate(0, 0, 7),
		Freq:    timeseries.Daily,
		Warmup:  30,
		NObs:    8,
		Created: created,
	}
	for i, r := range rows {
		fit.Names = append(fit.Names, r.Name)
		fit.Initial = append(fit.Initial, r.Initial)
		fit.Optimal = append(fit.Optimal, r.Initial*1.5)
		fit.Stderr = append(fit.Stderr, 0.1*float64(i+1))
	}
	// Stderr of the last parameter is unknown.
	fit.Stderr[len(fit.Stderr)-1] = math.NaN()
	return fit
}
