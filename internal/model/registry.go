package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/pastas/internal/param"
)

// Row is one registry row: a declared parameter plus its calibration
// outcome. Optimal and Stderr are NaN until a solve commits them.
type Row struct {
	param.Spec
	Optimal float64
	Stderr  float64
}

// HasOptimal reports whether the row carries a calibrated value.
func (r Row) HasOptimal() bool {
	return !math.IsNaN(r.Optimal)
}

// MarshalJSON implements json.Marshaler. Undefined values become null.
func (r Row) MarshalJSON() ([]byte, error) {
	spec, err := json.Marshal(r.Spec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(spec, &m); err != nil {
		return nil, err
	}
	m["optimal"] = param.NullableFloat(r.Optimal)
	m["stderr"] = param.NullableFloat(r.Stderr)
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Row) UnmarshalJSON(data []byte) error {
	var spec param.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	var extra struct {
		Optimal *float64 `json:"optimal"`
		Stderr  *float64 `json:"stderr"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	*r = Row{
		Spec:    spec,
		Optimal: param.FloatOrNaN(extra.Optimal),
		Stderr:  param.FloatOrNaN(extra.Stderr),
	}
	return nil
}

// Block is the contiguous run of rows owned by one component.
type Block struct {
	Component string
	Offset    int
	Count     int
}

// Registry is an immutable, ordered parameter table spanning all active
// components: contributors in insertion order, then the constant, then the
// transform, then the noise model. A component's block starts at the
// cumulative row count of the components before it.
//
// Registries are never patched in place; every structural change builds a
// new one.
type Registry struct {
	rows   []Row
	blocks []Block
	index  map[string]int
}

// componentTable is one component's declared rows, in registry order.
type componentTable struct {
	name string
	rows param.Table
}

// Override replaces fields of a registry row. Nil fields are left alone.
type Override struct {
	Initial *float64
	PMin    *float64
	PMax    *float64
	Vary    *bool
}

func (o Override) apply(r Row) Row {
	if o.Initial != nil {
		r.Initial = *o.Initial
	}
	if o.PMin != nil {
		r.PMin = *o.PMin
	}
	if o.PMax != nil {
		r.PMax = *o.PMax
	}
	if o.Vary != nil {
		r.Vary = *o.Vary
	}
	return r
}

// buildRegistry concatenates the component tables. Row names must be
// unique. When prev is non-nil, optimal and stderr values are copied
// forward by row name.
func buildRegistry(tables []componentTable, prev *Registry, overrides map[string]Override) (*Registry, error) {
	reg := &Registry{index: make(map[string]int)}
	for _, t := range tables {
		block := Block{Component: t.name, Offset: len(reg.rows), Count: len(t.rows)}
		for _, spec := range t.rows {
			if err := spec.Validate(); err != nil {
				return nil, configError("component %s: %v", t.name, err)
			}
			if _, dup := reg.index[spec.Name]; dup {
				return nil, configError("parameter %s is declared twice", spec.Name)
			}
			row := Row{Spec: spec, Optimal: math.NaN(), Stderr: math.NaN()}
			row.Component = t.name
			if o, ok := overrides[spec.Name]; ok {
				row = o.apply(row)
			}
			if prev != nil {
				if old, ok := prev.Row(spec.Name); ok {
					row.Optimal = old.Optimal
					row.Stderr = old.Stderr
				}
			}
			reg.index[spec.Name] = len(reg.rows)
			reg.rows = append(reg.rows, row)
		}
		reg.blocks = append(reg.blocks, block)
	}
	return reg, nil
}

// emptyRegistry returns a registry with no rows.
func emptyRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Len returns the number of rows.
func (r *Registry) Len() int {
	return len(r.rows)
}

// Rows returns a copy of all rows in order.
func (r *Registry) Rows() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// Row returns the row with the given name.
func (r *Registry) Row(name string) (Row, bool) {
	i, ok := r.index[name]
	if !ok {
		return Row{}, false
	}
	return r.rows[i], true
}

// Names returns the row names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.rows))
	for i, row := range r.rows {
		out[i] = row.Name
	}
	return out
}

// Blocks returns the component blocks in order.
func (r *Registry) Blocks() []Block {
	out := make([]Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// Offset returns the first row and the row count of a component.
func (r *Registry) Offset(component string) (offset, count int, ok bool) {
	for _, b := range r.blocks {
		if b.Component == component {
			return b.Offset, b.Count, true
		}
	}
	return 0, 0, false
}

// Slice returns the part of p owned by component.
func (r *Registry) Slice(p []float64, component string) ([]float64, error) {
	off, n, ok := r.Offset(component)
	if !ok {
		return nil, invalidState(component, "component has no parameters in the registry")
	}
	if off+n > len(p) {
		return nil, fmt.Errorf("parameter vector has %d entries, %s needs rows %d..%d", len(p), component, off, off+n-1)
	}
	return p[off : off+n], nil
}

// Column accessors.

func (r *Registry) Initial() []float64 { return r.column(func(row Row) float64 { return row.Initial }) }
func (r *Registry) Optimal() []float64 { return r.column(func(row Row) float64 { return row.Optimal }) }
func (r *Registry) Stderr() []float64  { return r.column(func(row Row) float64 { return row.Stderr }) }
func (r *Registry) PMin() []float64    { return r.column(func(row Row) float64 { return row.PMin }) }
func (r *Registry) PMax() []float64    { return r.column(func(row Row) float64 { return row.PMax }) }

// Vary returns the vary flags in order.
func (r *Registry) Vary() []bool {
	out := make([]bool, len(r.rows))
	for i, row := range r.rows {
		out[i] = row.Vary
	}
	return out
}

func (r *Registry) column(f func(Row) float64) []float64 {
	out := make([]float64, len(r.rows))
	for i, row := range r.rows {
		out[i] = f(row)
	}
	return out
}

// Vector returns the parameter vector to evaluate with: the optimal column
// when every selected row has one, else the initial column for all selected
// rows. An empty component selects the whole table. fromInitial reports
// the fallback.
func (r *Registry) Vector(component string) (p []float64, fromInitial bool, err error) {
	rows := r.rows
	if component != "" {
		off, n, ok := r.Offset(component)
		if !ok {
			return nil, false, invalidState(component, "component has no parameters in the registry")
		}
		rows = r.rows[off : off+n]
	}
	p = make([]float64, len(rows))
	for i, row := range rows {
		if !row.HasOptimal() {
			fromInitial = true
			break
		}
		p[i] = row.Optimal
	}
	if fromInitial {
		for i, row := range rows {
			p[i] = row.Initial
		}
	}
	return p, fromInitial, nil
}

// withFit returns a copy with the optimal and stderr columns replaced.
func (r *Registry) withFit(optimal, stderr []float64) *Registry {
	out := r.clone()
	for i := range out.rows {
		out.rows[i].Optimal = optimal[i]
		out.rows[i].Stderr = stderr[i]
	}
	return out
}

// withRows returns a copy with the rows replaced wholesale. The names must
// match the current rows in order.
func (r *Registry) withRows(rows []Row) (*Registry, error) {
	if len(rows) != len(r.rows) {
		return nil, configError("parameter table has %d rows, model declares %d", len(rows), len(r.rows))
	}
	out := r.clone()
	for i, row := range rows {
		if row.Name != r.rows[i].Name {
			return nil, configError("parameter row %d is %s, model declares %s", i, row.Name, r.rows[i].Name)
		}
		row.Component = r.rows[i].Component
		out.rows[i] = row
	}
	return out, nil
}

func (r *Registry) clone() *Registry {
	out := &Registry{
		rows:   make([]Row, len(r.rows)),
		blocks: make([]Block, len(r.blocks)),
		index:  make(map[string]int, len(r.index)),
	}
	copy(out.rows, r.rows)
	copy(out.blocks, r.blocks)
	for k, v := range r.index {
		out.index[k] = v
	}
	return out
}

// Table renders the registry as a fixed-width text table.
func (r *Registry) Table() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-12s %12s %12s %12s %12s %6s\n",
		"name", "component", "initial", "pmin", "pmax", "optimal", "vary")
	for _, row := range r.rows {
		fmt.Fprintf(&b, "%-16s %-12s %12.6g %12.6g %12.6g %12.6g %6t\n",
			row.Name, row.Component, row.Initial, row.PMin, row.PMax, row.Optimal, row.Vary)
	}
	return b.String()
}
