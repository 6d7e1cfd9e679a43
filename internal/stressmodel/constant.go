package stressmodel

import (
	"math"

	"github.com/roach88/pastas/internal/param"
)

// Constant adds a single level d to the simulation.
type Constant struct {
	name  string
	value float64
}

// NewConstant returns a constant with initial level value. An empty name
// defaults to "constant".
func NewConstant(name string, value float64) *Constant {
	if name == "" {
		name = "constant"
	}
	if math.IsNaN(value) {
		value = 0
	}
	return &Constant{name: name, value: value}
}

func (c *Constant) Name() string { return c.name }
func (c *Constant) NParam() int  { return 1 }

// Value returns the initial level.
func (c *Constant) Value() float64 { return c.value }

// Parameters returns the unbounded level row.
func (c *Constant) Parameters() param.Table {
	return param.Table{param.New(c.name, "d", c.value, math.NaN(), math.NaN())}
}

// Simulate returns the level.
func (c *Constant) Simulate(p []float64) float64 {
	return p[0]
}
