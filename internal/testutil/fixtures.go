package testutil

import (
	"math"
	"time"

	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/timeseries"
)

// Daily returns a daily series starting at start.
func Daily(name string, start time.Time, values []float64) timeseries.Series {
	return timeseries.Regular(name, start, timeseries.Day, values)
}

// Constant returns n daily samples of v.
func Constant(name string, start time.Time, n int, v float64) timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return Daily(name, start, values)
}

// Precipitation returns n days of synthetic precipitation in mm/day:
// showers on a fixed pattern with dry spells in between.
func Precipitation(start time.Time, n int) timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		v := 3*math.Sin(float64(i)*0.7) + 2*math.Cos(float64(i)*0.13) + 0.5
		values[i] = math.Max(0, v)
	}
	return Daily("prec", start, values)
}

// Evaporation returns n days of synthetic evaporation in mm/day with a
// yearly cycle peaking in summer.
func Evaporation(start time.Time, n int) timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		doy := float64(start.AddDate(0, 0, i).YearDay())
		values[i] = 1.5 + 1.2*math.Sin(2*math.Pi*(doy-80)/365)
	}
	return Daily("evap", start, values)
}

// RechargeParams are the parameters the synthetic heads are built with:
// recharge_A, recharge_a, recharge_f and the constant level d.
var RechargeParams = []float64{0.8, 60, -1.2, 10}

// Synthetic bundles stresses and the heads they generate.
type Synthetic struct {
	Prec timeseries.Series
	Evap timeseries.Series
	// Head is the noise-free head on every day after the first year.
	Head timeseries.Series
}

// NewSynthetic builds n days of stresses and the heads produced by an
// exponential recharge model with RechargeParams. The first year is
// withheld from Head so that models have stress history for their warmup.
func NewSynthetic(n int) (Synthetic, error) {
	prec := Precipitation(Epoch, n)
	evap := Evaporation(Epoch, n)
	ps, err := timeseries.NewPresetStress(prec, "prec")
	if err != nil {
		return Synthetic{}, err
	}
	es, err := timeseries.NewPresetStress(evap, "evap")
	if err != nil {
		return Synthetic{}, err
	}
	rm, err := stressmodel.NewRechargeModel("recharge", ps, es, rfunc.NewExponential(true))
	if err != nil {
		return Synthetic{}, err
	}
	sim, err := rm.Simulate(RechargeParams[:3], prec.Index, 1)
	if err != nil {
		return Synthetic{}, err
	}
	for i := range sim.Values {
		sim.Values[i] += RechargeParams[3]
	}
	head := sim.Slice(Epoch.AddDate(1, 0, 0), time.Time{}).WithName("head")
	return Synthetic{Prec: prec, Evap: evap, Head: head}, nil
}

// Sparse keeps every k-th sample of s.
func Sparse(s timeseries.Series, k int) timeseries.Series {
	var pos []int
	for i := 0; i < s.Len(); i += k {
		pos = append(pos, i)
	}
	return s.Take(pos)
}

// Shift moves every timestamp of s by d.
func Shift(s timeseries.Series, d time.Duration) timeseries.Series {
	out := s.Clone()
	for i := range out.Index {
		out.Index[i] = out.Index[i].Add(d)
	}
	return out
}
