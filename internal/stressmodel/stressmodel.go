// Package stressmodel implements the contributors that turn forcing series
// into additive contributions to a simulated head, plus the constant level.
package stressmodel

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/pastas/internal/param"
	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/timeseries"
)

// Contributor is a named unit producing one additive contribution from one
// or more stresses and a private parameter slice.
type Contributor interface {
	Name() string
	NParam() int
	// Parameters returns the initial parameter rows, named
	// "<name>_<suffix>".
	Parameters() param.Table
	Stresses() []*timeseries.Stress
	// Tmin and Tmax bound the period for which all stresses are known.
	Tmin() time.Time
	Tmax() time.Time
	// UpdateStress resamples the stresses to freq over [tmin, tmax].
	UpdateStress(freq timeseries.Freq, tmin, tmax time.Time) error
	// Simulate returns the contribution on axis. It must not modify the
	// contributor and may be called concurrently.
	Simulate(p []float64, axis []time.Time, dt float64) (timeseries.Series, error)
	// Stress returns the combined input series on the current working
	// index for the given parameters.
	Stress(p []float64) timeseries.Series
	RFunc() rfunc.RFunc
	Dump() Dump
}

// Kinds of contributor.
const (
	KindStressModel   = "StressModel"
	KindRechargeModel = "RechargeModel"
)

// Dump is the serialized form of a contributor.
type Dump struct {
	Kind     string                  `json:"kind"`
	Name     string                  `json:"name"`
	Stresses []timeseries.StressDump `json:"stresses"`
	RFunc    rfunc.Dump              `json:"rfunc"`
}

// Load reconstructs a contributor from its dump.
func Load(d Dump) (Contributor, error) {
	rf, err := rfunc.Load(d.RFunc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.Name, err)
	}
	stresses := make([]*timeseries.Stress, len(d.Stresses))
	for i, sd := range d.Stresses {
		st, err := timeseries.LoadStress(sd)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d.Name, err)
		}
		stresses[i] = st
	}
	switch d.Kind {
	case KindStressModel:
		if len(stresses) != 1 {
			return nil, fmt.Errorf("load %s: %s needs 1 stress, got %d", d.Name, d.Kind, len(stresses))
		}
		return NewStressModel(d.Name, stresses[0], rf)
	case KindRechargeModel:
		if len(stresses) != 2 {
			return nil, fmt.Errorf("load %s: %s needs 2 stresses, got %d", d.Name, d.Kind, len(stresses))
		}
		return NewRechargeModel(d.Name, stresses[0], stresses[1], rf)
	default:
		return nil, fmt.Errorf("load %s: unknown contributor kind %q", d.Name, d.Kind)
	}
}

// StressModel convolves a single stress with a response function.
type StressModel struct {
	name   string
	stress *timeseries.Stress
	rfunc  rfunc.RFunc
}

// NewStressModel returns a contributor for one stress. An empty name takes
// the stress name.
func NewStressModel(name string, stress *timeseries.Stress, rf rfunc.RFunc) (*StressModel, error) {
	if stress == nil || rf == nil {
		return nil, fmt.Errorf("stress model %q: stress and response function are required", name)
	}
	if name == "" {
		name = stress.Name()
	}
	return &StressModel{name: name, stress: stress, rfunc: rf}, nil
}

func (sm *StressModel) Name() string                   { return sm.name }
func (sm *StressModel) NParam() int                    { return sm.rfunc.NParam() }
func (sm *StressModel) Stresses() []*timeseries.Stress { return []*timeseries.Stress{sm.stress} }
func (sm *StressModel) Tmin() time.Time                { return sm.stress.Tmin() }
func (sm *StressModel) Tmax() time.Time                { return sm.stress.Tmax() }
func (sm *StressModel) RFunc() rfunc.RFunc             { return sm.rfunc }

func (sm *StressModel) Parameters() param.Table {
	return sm.rfunc.Parameters(sm.name, sm.stress.Mean())
}

func (sm *StressModel) UpdateStress(freq timeseries.Freq, tmin, tmax time.Time) error {
	return sm.stress.Update(freq, tmin, tmax)
}

func (sm *StressModel) Stress(p []float64) timeseries.Series {
	return sm.stress.Series()
}

func (sm *StressModel) Simulate(p []float64, axis []time.Time, dt float64) (timeseries.Series, error) {
	if len(p) != sm.NParam() {
		return timeseries.Series{}, fmt.Errorf("simulate %s: got %d parameters, want %d", sm.name, len(p), sm.NParam())
	}
	s, err := onAxis(sm.stress, axis)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("simulate %s: %w", sm.name, err)
	}
	return timeseries.Series{
		Name:   sm.name,
		Index:  s.Index,
		Values: convolve(s.Values, sm.rfunc.Block(p, dt)),
	}, nil
}

func (sm *StressModel) Dump() Dump {
	return Dump{
		Kind:     KindStressModel,
		Name:     sm.name,
		Stresses: []timeseries.StressDump{sm.stress.Dump()},
		RFunc:    sm.rfunc.Dump(),
	}
}

// onAxis returns the working series of st on axis, resampling privately
// when the working index does not cover it.
func onAxis(st *timeseries.Stress, axis []time.Time) (timeseries.Series, error) {
	working := st.Series()
	if len(axis) == 0 {
		return timeseries.Series{}, nil
	}
	if covers(working, axis) {
		return working.Slice(axis[0], axis[len(axis)-1]), nil
	}
	if len(axis) == 1 {
		return working.Reindex(axis, math.NaN()), nil
	}
	freq := timeseries.FreqOf(axis[1].Sub(axis[0]))
	return st.Resampled(freq, axis[0], axis[len(axis)-1])
}

// covers reports whether s holds exactly the timestamps of axis as a
// contiguous run.
func covers(s timeseries.Series, axis []time.Time) bool {
	i, ok := s.IndexOf(axis[0])
	if !ok || i+len(axis) > s.Len() {
		return false
	}
	for k, t := range axis {
		if !s.Index[i+k].Equal(t) {
			return false
		}
	}
	return true
}

// convolve returns the first len(x) samples of the full convolution of x
// with the block response b.
func convolve(x, b []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		kmax := len(b)
		if i+1 < kmax {
			kmax = i + 1
		}
		var sum float64
		for k := 0; k < kmax; k++ {
			sum += b[k] * x[i-k]
		}
		out[i] = sum
	}
	return out
}
