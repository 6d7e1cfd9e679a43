// Package transform implements nonlinear transforms applied to the summed
// simulation.
package transform

import (
	"fmt"
	"math"

	"github.com/roach88/pastas/internal/param"
	"github.com/roach88/pastas/internal/timeseries"
)

// Dump is the serialized form of a transform.
type Dump struct {
	Kind   string `json:"kind" yaml:"kind" validate:"required,oneof=ThresholdTransform"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	NParam int    `json:"nparam,omitempty" yaml:"nparam,omitempty" validate:"omitempty,oneof=1 2"`
	// Value, VMin and VMax set the threshold row. They are filled from the
	// observed series when the transform is attached to a model.
	Value float64 `json:"value" yaml:"value"`
	VMin  float64 `json:"vmin" yaml:"vmin"`
	VMax  float64 `json:"vmax" yaml:"vmax"`
}

// Threshold reduces the rise of the signal above a level. With two
// parameters (level, factor) values h above the level become
// level + factor*(h - level); with one parameter they are clipped to the
// level.
type Threshold struct {
	name   string
	nparam int
	value  float64
	vmin   float64
	vmax   float64
}

// NewThreshold returns a threshold transform with its level row set from
// the observed range [vmin, vmax]: initial at the midpoint.
func NewThreshold(name string, nparam int, vmin, vmax float64) (*Threshold, error) {
	if nparam != 1 && nparam != 2 {
		return nil, fmt.Errorf("threshold transform: nparam must be 1 or 2, got %d", nparam)
	}
	if math.IsNaN(vmin) || math.IsNaN(vmax) || vmin > vmax {
		return nil, fmt.Errorf("threshold transform: invalid range [%g, %g]", vmin, vmax)
	}
	if name == "" {
		name = "transform"
	}
	return &Threshold{
		name:   name,
		nparam: nparam,
		value:  vmin + (vmax-vmin)/2,
		vmin:   vmin,
		vmax:   vmax,
	}, nil
}

// ForSeries returns a threshold transform ranged on the observed series.
func ForSeries(name string, nparam int, observed timeseries.Series) (*Threshold, error) {
	return NewThreshold(name, nparam, observed.Min(), observed.Max())
}

func (t *Threshold) Name() string { return t.name }
func (t *Threshold) NParam() int  { return t.nparam }

func (t *Threshold) Parameters() param.Table {
	rows := param.Table{param.New(t.name, "1", t.value, t.vmin, t.vmax)}
	if t.nparam == 2 {
		rows = append(rows, param.New(t.name, "2", 0.5, 0, 1))
	}
	return rows
}

// Simulate returns a transformed copy of h.
func (t *Threshold) Simulate(h timeseries.Series, p []float64) timeseries.Series {
	out := h.Clone()
	level := p[0]
	for i, v := range out.Values {
		if v <= level {
			continue
		}
		if t.nparam == 2 {
			out.Values[i] = level + p[1]*(v-level)
		} else {
			out.Values[i] = level
		}
	}
	return out
}

func (t *Threshold) Dump() Dump {
	return Dump{
		Kind:   "ThresholdTransform",
		Name:   t.name,
		NParam: t.nparam,
		Value:  t.value,
		VMin:   t.vmin,
		VMax:   t.vmax,
	}
}

// Load reconstructs a transform from its dump.
func Load(d Dump) (*Threshold, error) {
	if d.Kind != "ThresholdTransform" {
		return nil, fmt.Errorf("unknown transform %q", d.Kind)
	}
	nparam := d.NParam
	if nparam == 0 {
		nparam = 2
	}
	t, err := NewThreshold(d.Name, nparam, d.VMin, d.VMax)
	if err != nil {
		return nil, err
	}
	t.value = d.Value
	return t, nil
}
