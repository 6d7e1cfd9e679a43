package config

import (
	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/timeseries"
)

// File is a model definition.
type File struct {
	Name         string               `json:"name,omitempty" yaml:"name,omitempty"`
	Observed     Series               `json:"oseries" yaml:"oseries"`
	StressModels []StressModel        `json:"stressmodels,omitempty" yaml:"stressmodels,omitempty" validate:"dive"`
	Constant     *bool                `json:"constant,omitempty" yaml:"constant,omitempty"`
	Noise        *bool                `json:"noise,omitempty" yaml:"noise,omitempty"`
	Transform    *Transform           `json:"transform,omitempty" yaml:"transform,omitempty"`
	Freq         string               `json:"freq,omitempty" yaml:"freq,omitempty" validate:"omitempty,freq"`
	Warmup       *int                 `json:"warmup,omitempty" yaml:"warmup,omitempty" validate:"omitempty,gte=0"`
	Metadata     map[string]string    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Parameters   map[string]Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive"`
	Fit          Fit                  `json:"fit" yaml:"fit"`

	// dir is the directory relative series files are resolved against.
	dir string
}

// Series is a series read from a CSV file or given inline.
type Series struct {
	Name     string              `json:"name,omitempty" yaml:"name,omitempty"`
	File     string              `json:"file,omitempty" yaml:"file,omitempty"`
	Start    string              `json:"start,omitempty" yaml:"start,omitempty" validate:"omitempty,timestamp"`
	Freq     string              `json:"freq,omitempty" yaml:"freq,omitempty" validate:"omitempty,freq"`
	Values   []float64           `json:"values,omitempty" yaml:"values,omitempty"`
	Preset   string              `json:"preset,omitempty" yaml:"preset,omitempty" validate:"omitempty,oneof=oseries prec evap well waterlevel"`
	Settings timeseries.Settings `json:"settings" yaml:"settings"`
}

// StressModel describes one contributor. StressModel kinds read Stress,
// RechargeModel kinds read Prec and Evap.
type StressModel struct {
	Name   string     `json:"name" yaml:"name" validate:"required"`
	Kind   string     `json:"kind" yaml:"kind" validate:"required,oneof=StressModel RechargeModel"`
	RFunc  rfunc.Dump `json:"rfunc" yaml:"rfunc"`
	Stress *Series    `json:"stress,omitempty" yaml:"stress,omitempty"`
	Prec   *Series    `json:"prec,omitempty" yaml:"prec,omitempty"`
	Evap   *Series    `json:"evap,omitempty" yaml:"evap,omitempty"`
}

// Transform describes the threshold transform.
type Transform struct {
	Kind   string `json:"kind" yaml:"kind" validate:"required,oneof=ThresholdTransform"`
	NParam int    `json:"nparam,omitempty" yaml:"nparam,omitempty" validate:"omitempty,oneof=1 2"`
}

// Parameter overrides fields of one registry row.
type Parameter struct {
	Initial *float64 `json:"initial,omitempty" yaml:"initial,omitempty"`
	PMin    *float64 `json:"pmin,omitempty" yaml:"pmin,omitempty"`
	PMax    *float64 `json:"pmax,omitempty" yaml:"pmax,omitempty"`
	Vary    *bool    `json:"vary,omitempty" yaml:"vary,omitempty"`
}

// Fit holds the calibration settings.
type Fit struct {
	Solver  string  `json:"solver,omitempty" yaml:"solver,omitempty" validate:"omitempty,oneof=least_squares nelder_mead"`
	Tmin    string  `json:"tmin,omitempty" yaml:"tmin,omitempty" validate:"omitempty,timestamp"`
	Tmax    string  `json:"tmax,omitempty" yaml:"tmax,omitempty" validate:"omitempty,timestamp"`
	Noise   string  `json:"noise,omitempty" yaml:"noise,omitempty" validate:"omitempty,oneof=auto on off"`
	Weights *Series `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Dir returns the directory relative series files are resolved against.
func (f *File) Dir() string { return f.dir }
