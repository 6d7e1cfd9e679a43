// Package param defines the parameter rows that components declare and the
// model concatenates into its registry.
package param

import (
	"encoding/json"
	"fmt"
	"math"
)

// Spec is one parameter row as declared by a component. PMin and PMax are
// NaN when the parameter is unbounded on that side.
type Spec struct {
	Name      string
	Initial   float64
	PMin      float64
	PMax      float64
	Vary      bool
	Component string
}

// Table is an ordered list of parameter rows.
type Table []Spec

// New returns a free parameter row.
func New(component, suffix string, initial, pmin, pmax float64) Spec {
	return Spec{
		Name:      Name(component, suffix),
		Initial:   initial,
		PMin:      pmin,
		PMax:      pmax,
		Vary:      true,
		Component: component,
	}
}

// Name builds the "<component>_<suffix>" row name.
func Name(component, suffix string) string {
	return component + "_" + suffix
}

// Fixed returns a copy of the row that will not be varied by solvers.
func (s Spec) Fixed() Spec {
	s.Vary = false
	return s
}

// Bounded reports whether value lies within [PMin, PMax], treating NaN
// bounds as open.
func (s Spec) Bounded(value float64) bool {
	if !math.IsNaN(s.PMin) && value < s.PMin {
		return false
	}
	if !math.IsNaN(s.PMax) && value > s.PMax {
		return false
	}
	return true
}

// Clamp limits value to [PMin, PMax], treating NaN bounds as open.
func (s Spec) Clamp(value float64) float64 {
	if !math.IsNaN(s.PMin) && value < s.PMin {
		return s.PMin
	}
	if !math.IsNaN(s.PMax) && value > s.PMax {
		return s.PMax
	}
	return value
}

// Validate checks that the row has a name and that the initial value lies
// within its bounds.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("parameter has no name")
	}
	if !math.IsNaN(s.PMin) && !math.IsNaN(s.PMax) && s.PMin > s.PMax {
		return fmt.Errorf("parameter %s: pmin %g > pmax %g", s.Name, s.PMin, s.PMax)
	}
	if math.IsNaN(s.Initial) {
		return fmt.Errorf("parameter %s: initial value is NaN", s.Name)
	}
	return nil
}

// Names returns the row names in order.
func (t Table) Names() []string {
	out := make([]string, len(t))
	for i, s := range t {
		out[i] = s.Name
	}
	return out
}

// Initial returns the initial values in order.
func (t Table) Initial() []float64 {
	out := make([]float64, len(t))
	for i, s := range t {
		out[i] = s.Initial
	}
	return out
}

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// specJSON is the wire form of a Spec; NaN bounds become null.
type specJSON struct {
	Name      string   `json:"name"`
	Initial   float64  `json:"initial"`
	PMin      *float64 `json:"pmin"`
	PMax      *float64 `json:"pmax"`
	Vary      bool     `json:"vary"`
	Component string   `json:"component"`
}

// MarshalJSON implements json.Marshaler.
func (s Spec) MarshalJSON() ([]byte, error) {
	return json.Marshal(specJSON{
		Name:      s.Name,
		Initial:   s.Initial,
		PMin:      NullableFloat(s.PMin),
		PMax:      NullableFloat(s.PMax),
		Vary:      s.Vary,
		Component: s.Component,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var w specJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Spec{
		Name:      w.Name,
		Initial:   w.Initial,
		PMin:      FloatOrNaN(w.PMin),
		PMax:      FloatOrNaN(w.PMax),
		Vary:      w.Vary,
		Component: w.Component,
	}
	return nil
}

// NullableFloat returns nil for NaN and infinities, else a pointer to v.
func NullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FloatOrNaN dereferences p, returning NaN for nil.
func FloatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
