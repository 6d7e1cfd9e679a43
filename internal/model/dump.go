package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/pastas/internal/noise"
	"github.com/roach88/pastas/internal/param"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/timeseries"
	"github.com/roach88/pastas/internal/transform"
)

// Dump is the complete, order-preserving snapshot of a model.
type Dump struct {
	Name         string                `json:"name"`
	Observed     timeseries.StressDump `json:"oseries"`
	StressModels []stressmodel.Dump    `json:"stressmodels"`
	Constant     bool                  `json:"constant"`
	ConstantName string                `json:"constant_name,omitempty"`
	Transform    *transform.Dump       `json:"transform,omitempty"`
	NoiseModel   *noise.Dump           `json:"noisemodel,omitempty"`
	Parameters   []Row                 `json:"parameters"`
	Metadata     map[string]string     `json:"metadata"`
	Settings     SettingsDump          `json:"settings"`
	FileInfo     FileInfo              `json:"file_info"`
}

// SettingsDump is the serialized form of Settings.
type SettingsDump struct {
	Freq       timeseries.Freq `json:"freq"`
	FreqAuto   bool            `json:"freq_auto"`
	Warmup     int             `json:"warmup"`
	Tmin       *time.Time      `json:"tmin,omitempty"`
	Tmax       *time.Time      `json:"tmax,omitempty"`
	TimeOffset string          `json:"time_offset"`
	Noise      bool            `json:"noise"`
	Solver     string          `json:"solver,omitempty"`
}

// Dump returns the snapshot of the model.
func (m *Model) Dump() Dump {
	d := Dump{
		Name:       m.name,
		Observed:   m.observed.Dump(),
		Parameters: m.registry.Rows(),
		Metadata:   m.Metadata(),
		Settings: SettingsDump{
			Freq:       m.settings.Freq,
			FreqAuto:   m.freqAuto,
			Warmup:     m.settings.Warmup,
			TimeOffset: m.settings.TimeOffset.String(),
			Noise:      m.settings.Noise,
			Solver:     m.settings.Solver,
		},
		FileInfo: m.fileInfo,
	}
	for _, c := range m.contributors {
		d.StressModels = append(d.StressModels, c.Dump())
	}
	if m.constant != nil {
		d.Constant = true
		d.ConstantName = m.constant.Name()
	}
	if m.transform != nil {
		td := m.transform.Dump()
		d.Transform = &td
	}
	if m.noise != nil {
		nd := m.noise.Dump()
		d.NoiseModel = &nd
	}
	if !m.settings.Tmin.IsZero() {
		tmin, tmax := m.settings.Tmin, m.settings.Tmax
		d.Settings.Tmin, d.Settings.Tmax = &tmin, &tmax
	}
	return d
}

// FromDump reconstructs a model from its snapshot. The parameter table is
// restored exactly, including calibrated values, and its initial values,
// bounds and vary flags are kept as overrides for later rebuilds.
func FromDump(d Dump, opts ...Option) (*Model, error) {
	observed, err := timeseries.LoadStress(d.Observed)
	if err != nil {
		return nil, configError("load observed series: %v", err)
	}
	base := []Option{
		WithName(d.Name),
		WithConstant(false),
		WithNoise(false),
		WithMetadata(d.Metadata),
		WithWarmup(d.Settings.Warmup),
	}
	if !d.Settings.FreqAuto && !d.Settings.Freq.IsZero() {
		base = append(base, WithFreq(d.Settings.Freq))
	}
	m, err := New(observed, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for _, sd := range d.StressModels {
		c, err := stressmodel.Load(sd)
		if err != nil {
			return nil, configError("%v", err)
		}
		if err := m.AddStressModel(c, false); err != nil {
			return nil, err
		}
	}
	if d.Constant {
		if err := m.AddConstant(stressmodel.NewConstant(d.ConstantName, observed.Series().Mean())); err != nil {
			return nil, err
		}
	}
	if d.Transform != nil {
		t, err := transform.Load(*d.Transform)
		if err != nil {
			return nil, configError("%v", err)
		}
		if err := m.AddTransform(t); err != nil {
			return nil, err
		}
	}
	if d.NoiseModel != nil {
		n, err := noise.Load(*d.NoiseModel)
		if err != nil {
			return nil, configError("%v", err)
		}
		if err := m.AddNoiseModel(n); err != nil {
			return nil, err
		}
	}

	m.settings.Noise = d.Settings.Noise && m.noise != nil
	m.settings.Solver = d.Settings.Solver
	if d.Settings.Tmin != nil && d.Settings.Tmax != nil {
		m.settings.Tmin, m.settings.Tmax = d.Settings.Tmin.UTC(), d.Settings.Tmax.UTC()
	}
	if d.Settings.TimeOffset != "" {
		off, err := time.ParseDuration(d.Settings.TimeOffset)
		if err != nil {
			return nil, configError("time offset: %v", err)
		}
		m.settings.TimeOffset = off
	}
	if err := m.rebuild(false); err != nil {
		return nil, err
	}
	reg, err := m.registry.withRows(d.Parameters)
	if err != nil {
		return nil, err
	}
	m.registry = reg
	for _, row := range reg.rows {
		initial, pmin, pmax, vary := row.Initial, row.PMin, row.PMax, row.Vary
		m.overrides[row.Name] = Override{Initial: &initial, PMin: &pmin, PMax: &pmax, Vary: &vary}
	}
	if !d.FileInfo.Created.IsZero() {
		m.fileInfo = d.FileInfo
	}
	return m, nil
}

// MarshalJSON implements json.Marshaler. It writes the dump of the model.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Dump())
}

// fitResultJSON is the wire form of FitResult. NaN values become null.
type fitResultJSON struct {
	ID      string          `json:"id"`
	Solver  string          `json:"solver"`
	Names   []string        `json:"names"`
	Initial []*float64      `json:"initial"`
	Optimal []*float64      `json:"optimal"`
	Stderr  []*float64      `json:"stderr"`
	Nfev    int             `json:"nfev"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Cost    *float64        `json:"cost"`
	Tmin    time.Time       `json:"tmin"`
	Tmax    time.Time       `json:"tmax"`
	Freq    timeseries.Freq `json:"freq"`
	Warmup  int             `json:"warmup"`
	Noise   bool            `json:"noise"`
	NObs    int             `json:"nobs"`
	Created time.Time       `json:"created"`
}

// MarshalJSON implements json.Marshaler.
func (f FitResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(fitResultJSON{
		ID:      f.ID,
		Solver:  f.Solver,
		Names:   f.Names,
		Initial: nullable(f.Initial),
		Optimal: nullable(f.Optimal),
		Stderr:  nullable(f.Stderr),
		Nfev:    f.Nfev,
		Success: f.Success,
		Message: f.Message,
		Cost:    param.NullableFloat(f.Cost),
		Tmin:    f.Tmin,
		Tmax:    f.Tmax,
		Freq:    f.Freq,
		Warmup:  f.Warmup,
		Noise:   f.Noise,
		NObs:    f.NObs,
		Created: f.Created,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FitResult) UnmarshalJSON(data []byte) error {
	var w fitResultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode fit result: %w", err)
	}
	*f = FitResult{
		ID:      w.ID,
		Solver:  w.Solver,
		Names:   w.Names,
		Initial: denull(w.Initial),
		Optimal: denull(w.Optimal),
		Stderr:  denull(w.Stderr),
		Nfev:    w.Nfev,
		Success: w.Success,
		Message: w.Message,
		Cost:    param.FloatOrNaN(w.Cost),
		Tmin:    w.Tmin,
		Tmax:    w.Tmax,
		Freq:    w.Freq,
		Warmup:  w.Warmup,
		Noise:   w.Noise,
		NObs:    w.NObs,
		Created: w.Created,
	}
	return nil
}

func nullable(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i, x := range v {
		out[i] = param.NullableFloat(x)
	}
	return out
}

func denull(v []*float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = param.FloatOrNaN(x)
	}
	return out
}
