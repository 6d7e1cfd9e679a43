package model

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/pastas/internal/timeseries"
)

// Simulate composes the simulation on axis with step dt (days). The
// contributions are summed in registry order, with timestamps a
// contribution does not cover counting as zero. The constant is added and
// the transform applied last. Each component reads its parameters from
// its positional block in p, so p must follow the registry layout.
//
// Simulate does not modify the model and may be called concurrently.
func (m *Model) Simulate(p []float64, axis []time.Time, dt float64) (timeseries.Series, error) {
	return m.compose(p, axis, dt, true)
}

func (m *Model) compose(p []float64, axis []time.Time, dt float64, withTransform bool) (timeseries.Series, error) {
	if len(p) != m.registry.Len() {
		return timeseries.Series{}, fmt.Errorf("simulate: got %d parameters, registry has %d", len(p), m.registry.Len())
	}
	h := timeseries.Series{
		Name:   "Simulation",
		Index:  make([]time.Time, len(axis)),
		Values: make([]float64, len(axis)),
	}
	copy(h.Index, axis)

	istart := 0
	for _, c := range m.contributors {
		n := c.NParam()
		contrib, err := c.Simulate(p[istart:istart+n], axis, dt)
		if err != nil {
			return timeseries.Series{}, err
		}
		for i, v := range contrib.Lookup(axis, 0) {
			h.Values[i] += v
		}
		istart += n
	}
	if m.constant != nil {
		d := m.constant.Simulate(p[istart : istart+1])
		for i := range h.Values {
			h.Values[i] += d
		}
		istart++
	}
	if m.transform != nil && withTransform {
		n := m.transform.NParam()
		h = m.transform.Simulate(h, p[istart:istart+n])
		h.Name = "Simulation"
	}
	return h, nil
}

// SimulatePeriod simulates with the model's own time axis. A nil p uses the
// optimal parameters, or the initial ones when the model is not solved. A
// zero freq uses the model frequency. Inside a calibration session the
// session axis is used; otherwise the axis spans the stresses between
// tmin and tmax (zero means unbounded) plus the warmup. The result includes
// the warmup.
func (m *Model) SimulatePeriod(p []float64, tmin, tmax time.Time, freq timeseries.Freq) (timeseries.Series, error) {
	p, err := m.parameters(p)
	if err != nil {
		return timeseries.Series{}, err
	}
	axis, dt, err := m.simulationAxis(tmin, tmax, freq)
	if err != nil {
		return timeseries.Series{}, err
	}
	return m.Simulate(p, axis, dt)
}

// simulationAxis returns the session axis, or derives one from the
// stresses.
func (m *Model) simulationAxis(tmin, tmax time.Time, freq timeseries.Freq) ([]time.Time, float64, error) {
	if freq.IsZero() {
		freq = m.settings.Freq
	}
	if s := m.session; s != nil && s.freq == freq {
		return s.axis, s.dt, nil
	}
	dt, err := freq.Days()
	if err != nil {
		return nil, 0, configError("%v", err)
	}
	tmin, tmax, err = m.ResolveBounds(tmin, tmax, freq, false, true)
	if err != nil {
		return nil, 0, err
	}
	axis, err := BuildSimulationAxis(tmin, tmax, freq, m.settings.Warmup)
	if err != nil {
		return nil, 0, err
	}
	return axis, dt, nil
}

// parameters returns p, or the resolved parameter vector when p is nil.
func (m *Model) parameters(p []float64) ([]float64, error) {
	if p != nil {
		return p, nil
	}
	p, fromInitial, err := m.registry.Vector("")
	if err != nil {
		return nil, err
	}
	if fromInitial {
		m.notify(slog.LevelInfo, NoticeInitialParameters,
			"model is not solved; using the initial parameters")
	}
	return p, nil
}
