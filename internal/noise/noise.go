// Package noise implements noise models that turn residuals into
// innovations.
package noise

import (
	"fmt"
	"math"

	"github.com/roach88/pastas/internal/param"
	"github.com/roach88/pastas/internal/timeseries"
)

// Dump is the serialized form of a noise model.
type Dump struct {
	Kind string `json:"kind" yaml:"kind" validate:"required,oneof=AR1"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// AR1 is a first-order autoregressive noise model for irregular time
// steps. For residuals r and elapsed times dt (days) the innovations are
//
//	v[0] = r[0]
//	v[i] = w[i] * (r[i] - exp(-dt[i]/alpha) * r[i-1])
//
// with weights w that normalize for the varying step lengths.
type AR1 struct {
	name string
}

// NewAR1 returns an AR1 noise model. An empty name defaults to "noise".
func NewAR1(name string) *AR1 {
	if name == "" {
		name = "noise"
	}
	return &AR1{name: name}
}

func (n *AR1) Name() string { return n.name }
func (n *AR1) NParam() int  { return 1 }

func (n *AR1) Parameters() param.Table {
	return param.Table{param.New(n.name, "alpha", 14, 0, 5000)}
}

// Simulate returns the innovations for residuals res with elapsed times
// odelt, aligned to res.
func (n *AR1) Simulate(res timeseries.Series, odelt []float64, p []float64) (timeseries.Series, error) {
	if len(odelt) != res.Len() {
		return timeseries.Series{}, fmt.Errorf("noise %s: %d residuals but %d time steps", n.name, res.Len(), len(odelt))
	}
	alpha := p[0]
	v := res.WithName("Innovations")
	w := Weights(odelt, alpha)
	for i := 1; i < res.Len(); i++ {
		v.Values[i] = w[i] * (res.Values[i] - math.Exp(-odelt[i]/alpha)*res.Values[i-1])
	}
	return v, nil
}

// Weights returns the AR1 weights for the elapsed times. The first weight
// is 1; the first elapsed time is ignored.
func Weights(odelt []float64, alpha float64) []float64 {
	w := make([]float64, len(odelt))
	if len(odelt) == 0 {
		return w
	}
	w[0] = 1
	if len(odelt) == 1 {
		return w
	}
	power := 1 / (2 * float64(len(odelt)-1))
	var logSum float64
	e := make([]float64, len(odelt))
	for i := 1; i < len(odelt); i++ {
		e[i] = 1 - math.Exp(-2*odelt[i]/alpha)
		logSum += math.Log(e[i])
	}
	scale := math.Exp(power * logSum)
	for i := 1; i < len(odelt); i++ {
		w[i] = scale / math.Sqrt(e[i])
	}
	return w
}

func (n *AR1) Dump() Dump {
	return Dump{Kind: "AR1", Name: n.name}
}

// Load reconstructs a noise model from its dump.
func Load(d Dump) (*AR1, error) {
	if d.Kind != "AR1" {
		return nil, fmt.Errorf("unknown noise model %q", d.Kind)
	}
	return NewAR1(d.Name), nil
}
