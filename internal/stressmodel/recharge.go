package stressmodel

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/pastas/internal/param"
	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/timeseries"
)

// RechargeModel convolves the recharge prec + f*evap with a response
// function. The evaporation factor f is the last parameter.
type RechargeModel struct {
	name  string
	prec  *timeseries.Stress
	evap  *timeseries.Stress
	rfunc rfunc.RFunc
}

// NewRechargeModel returns a recharge contributor. An empty name defaults
// to "recharge".
func NewRechargeModel(name string, prec, evap *timeseries.Stress, rf rfunc.RFunc) (*RechargeModel, error) {
	if prec == nil || evap == nil || rf == nil {
		return nil, fmt.Errorf("recharge model %q: prec, evap and response function are required", name)
	}
	if name == "" {
		name = "recharge"
	}
	return &RechargeModel{name: name, prec: prec, evap: evap, rfunc: rf}, nil
}

func (rm *RechargeModel) Name() string       { return rm.name }
func (rm *RechargeModel) NParam() int        { return rm.rfunc.NParam() + 1 }
func (rm *RechargeModel) RFunc() rfunc.RFunc { return rm.rfunc }

func (rm *RechargeModel) Stresses() []*timeseries.Stress {
	return []*timeseries.Stress{rm.prec, rm.evap}
}

// Tmin returns the start of the period covered by both stresses.
func (rm *RechargeModel) Tmin() time.Time {
	a, b := rm.prec.Tmin(), rm.evap.Tmin()
	if a.After(b) {
		return a
	}
	return b
}

// Tmax returns the end of the period covered by both stresses.
func (rm *RechargeModel) Tmax() time.Time {
	a, b := rm.prec.Tmax(), rm.evap.Tmax()
	if a.Before(b) {
		return a
	}
	return b
}

func (rm *RechargeModel) Parameters() param.Table {
	t := rm.rfunc.Parameters(rm.name, rm.prec.Mean())
	return append(t, param.New(rm.name, "f", -1, -2, 0))
}

func (rm *RechargeModel) UpdateStress(freq timeseries.Freq, tmin, tmax time.Time) error {
	if err := rm.prec.Update(freq, tmin, tmax); err != nil {
		return err
	}
	return rm.evap.Update(freq, tmin, tmax)
}

// Stress returns prec + f*evap on the working index of prec.
func (rm *RechargeModel) Stress(p []float64) timeseries.Series {
	prec := rm.prec.Series()
	evap := rm.evap.Series().Lookup(prec.Index, 0)
	out := prec.WithName(rm.name)
	floats.AddScaled(out.Values, p[len(p)-1], evap)
	return out
}

func (rm *RechargeModel) Simulate(p []float64, axis []time.Time, dt float64) (timeseries.Series, error) {
	if len(p) != rm.NParam() {
		return timeseries.Series{}, fmt.Errorf("simulate %s: got %d parameters, want %d", rm.name, len(p), rm.NParam())
	}
	prec, err := onAxis(rm.prec, axis)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("simulate %s: %w", rm.name, err)
	}
	evap, err := onAxis(rm.evap, axis)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("simulate %s: %w", rm.name, err)
	}
	r := make([]float64, prec.Len())
	floats.AddScaledTo(r, prec.Values, p[len(p)-1], evap.Lookup(prec.Index, 0))
	return timeseries.Series{
		Name:   rm.name,
		Index:  prec.Index,
		Values: convolve(r, rm.rfunc.Block(p[:len(p)-1], dt)),
	}, nil
}

func (rm *RechargeModel) Dump() Dump {
	return Dump{
		Kind:     KindRechargeModel,
		Name:     rm.name,
		Stresses: []timeseries.StressDump{rm.prec.Dump(), rm.evap.Dump()},
		RFunc:    rm.rfunc.Dump(),
	}
}
