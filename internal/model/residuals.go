package model

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/pastas/internal/timeseries"
)

// calibration is the observation side of a residual evaluation.
type calibration struct {
	calib       timeseries.Series
	interpolate bool
}

// Residuals returns observations minus simulation at the calibration
// timestamps. Where a calibration timestamp is not on the simulation axis
// the simulation is interpolated linearly. A NaN sum of squares is
// reported as a NUMERICAL_NAN notice and the residuals are still returned.
//
// Inside a calibration session the session axis and calibration set are
// used; otherwise they are derived from tmin, tmax and freq. Residuals
// does not modify the model and may be called concurrently.
func (m *Model) Residuals(p []float64, tmin, tmax time.Time, freq timeseries.Freq) (timeseries.Series, error) {
	p, err := m.parameters(p)
	if err != nil {
		return timeseries.Series{}, err
	}
	return m.residuals(p, tmin, tmax, freq)
}

func (m *Model) residuals(p []float64, tmin, tmax time.Time, freq timeseries.Freq) (timeseries.Series, error) {
	if freq.IsZero() {
		freq = m.settings.Freq
	}
	axis, dt, err := m.simulationAxis(tmin, tmax, freq)
	if err != nil {
		return timeseries.Series{}, err
	}
	sim, err := m.Simulate(p, axis, dt)
	if err != nil {
		return timeseries.Series{}, err
	}
	cal, err := m.calibrationFor(tmin, tmax, freq, axis)
	if err != nil {
		return timeseries.Series{}, err
	}

	var hsim []float64
	if cal.interpolate {
		hsim = sim.Interpolate(cal.calib.Index)
	} else {
		hsim = sim.Lookup(cal.calib.Index, math.NaN())
	}
	res := cal.calib.WithName("Residuals")
	var ssr float64
	for i := range res.Values {
		res.Values[i] -= hsim[i]
		ssr += res.Values[i] * res.Values[i]
	}
	if math.IsNaN(ssr) {
		m.notify(slog.LevelWarn, NoticeNumericalNaN, "NaN in the residuals",
			slog.Int("n", res.Len()))
	}
	return res, nil
}

// calibrationFor returns the session calibration set or derives one for
// axis.
func (m *Model) calibrationFor(tmin, tmax time.Time, freq timeseries.Freq, axis []time.Time) (calibration, error) {
	if s := m.session; s != nil && s.freq == freq {
		return calibration{calib: s.calib, interpolate: s.interpolate}, nil
	}
	tmin, tmax, err := m.ResolveBounds(tmin, tmax, freq, true, false)
	if err != nil {
		return calibration{}, err
	}
	calib := BuildCalibrationSet(m.observed.Series(), tmin, tmax, axis)
	return calibration{calib: calib, interpolate: needsInterpolation(calib.Index, axis)}, nil
}

// needsInterpolation reports whether any timestamp of index is off axis.
func needsInterpolation(index, axis []time.Time) bool {
	a := timeseries.Series{Index: axis}
	for _, t := range index {
		if _, ok := a.IndexOf(t); !ok {
			return true
		}
	}
	return false
}

// Innovations applies the noise model to the residuals. It fails with an
// InvalidStateError when no noise model takes part in the registry. The
// noise parameters are the last entries of p.
func (m *Model) Innovations(p []float64, tmin, tmax time.Time, freq timeseries.Freq) (timeseries.Series, error) {
	if m.noise == nil {
		return timeseries.Series{}, invalidState("", "innovations need a noise model")
	}
	if _, _, ok := m.registry.Offset(m.noise.Name()); !ok {
		return timeseries.Series{}, invalidState(m.noise.Name(), "noise model is disabled; initialize with noise to compute innovations")
	}
	p, err := m.parameters(p)
	if err != nil {
		return timeseries.Series{}, err
	}
	return m.innovations(p, tmin, tmax, freq)
}

func (m *Model) innovations(p []float64, tmin, tmax time.Time, freq timeseries.Freq) (timeseries.Series, error) {
	res, err := m.residuals(p, tmin, tmax, freq)
	if err != nil {
		return timeseries.Series{}, err
	}
	k := m.noise.NParam()
	if len(p) < k {
		return timeseries.Series{}, fmt.Errorf("innovations: got %d parameters, noise model needs %d", len(p), k)
	}
	odelt := m.odelt()
	v, err := m.noise.Simulate(res, odelt.Lookup(res.Index, math.NaN()), p[len(p)-k:])
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("innovations: %w", err)
	}
	return v, nil
}

// odelt returns the session deltas, or computes them.
func (m *Model) odelt() timeseries.Series {
	if m.session != nil {
		return m.session.odelt
	}
	return m.observed.Series().Deltas()
}

// ObservationDeltas returns the elapsed time in days between consecutive
// observations. The first value is NaN.
func (m *Model) ObservationDeltas() timeseries.Series {
	return m.observed.Series().Deltas()
}
