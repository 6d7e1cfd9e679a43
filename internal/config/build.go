package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/timeseries"
	"github.com/roach88/pastas/internal/transform"
)

// TransformName is the component name given to the threshold transform.
const TransformName = "threshold"

// Build reads the series of f and assembles the model. opts are applied
// after the options derived from f.
func Build(f *File, opts ...model.Option) (*model.Model, error) {
	obs, err := f.stress(&f.Observed, "Observations", "oseries")
	if err != nil {
		return nil, fmt.Errorf("oseries: %w", err)
	}

	base := []model.Option{
		model.WithConstant(boolOr(f.Constant, true)),
		model.WithNoise(boolOr(f.Noise, true)),
	}
	if f.Name != "" {
		base = append(base, model.WithName(f.Name))
	}
	if f.Freq != "" {
		base = append(base, model.WithFreq(timeseries.Freq(f.Freq)))
	}
	if f.Warmup != nil {
		base = append(base, model.WithWarmup(*f.Warmup))
	}
	if len(f.Metadata) > 0 {
		base = append(base, model.WithMetadata(f.Metadata))
	}

	m, err := model.New(obs, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for _, spec := range f.StressModels {
		c, err := f.contributor(spec)
		if err != nil {
			return nil, fmt.Errorf("stress model %s: %w", spec.Name, err)
		}
		if err := m.AddStressModel(c, false); err != nil {
			return nil, err
		}
	}

	if f.Transform != nil {
		nparam := f.Transform.NParam
		if nparam == 0 {
			nparam = 2
		}
		tr, err := transform.ForSeries(TransformName, nparam, m.Observed())
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		if err := m.AddTransform(tr); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(f.Parameters))
	for name := range f.Parameters {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p := f.Parameters[name]
		o := model.Override{Initial: p.Initial, PMin: p.PMin, PMax: p.PMax, Vary: p.Vary}
		if err := m.SetParameter(name, o); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SolveOptions converts the fit settings of f.
func (f *File) SolveOptions() (model.SolveOptions, error) {
	var opts model.SolveOptions
	var err error
	if f.Fit.Tmin != "" {
		if opts.Tmin, err = timeseries.ParseTime(f.Fit.Tmin); err != nil {
			return opts, err
		}
	}
	if f.Fit.Tmax != "" {
		if opts.Tmax, err = timeseries.ParseTime(f.Fit.Tmax); err != nil {
			return opts, err
		}
	}
	if opts.Noise, err = model.ParseNoiseMode(f.Fit.Noise); err != nil {
		return opts, err
	}
	if f.Fit.Weights != nil {
		w, err := f.series(f.Fit.Weights, "weights")
		if err != nil {
			return opts, fmt.Errorf("fit.weights: %w", err)
		}
		opts.Weights = &w
	}
	return opts, nil
}

func (f *File) contributor(spec StressModel) (stressmodel.Contributor, error) {
	rf, err := rfunc.Load(spec.RFunc)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case stressmodel.KindStressModel:
		st, err := f.stress(spec.Stress, spec.Name, "")
		if err != nil {
			return nil, err
		}
		return stressmodel.NewStressModel(spec.Name, st, rf)
	case stressmodel.KindRechargeModel:
		prec, err := f.stress(spec.Prec, "prec", "prec")
		if err != nil {
			return nil, fmt.Errorf("prec: %w", err)
		}
		evap, err := f.stress(spec.Evap, "evap", "evap")
		if err != nil {
			return nil, fmt.Errorf("evap: %w", err)
		}
		return stressmodel.NewRechargeModel(spec.Name, prec, evap, rf)
	default:
		return nil, fmt.Errorf("unknown stress model kind %q", spec.Kind)
	}
}

// stress reads s and applies its preset, or defaultPreset when s names
// none, with the explicit settings on top.
func (f *File) stress(s *Series, defaultName, defaultPreset string) (*timeseries.Stress, error) {
	series, err := f.series(s, defaultName)
	if err != nil {
		return nil, err
	}
	preset := s.Preset
	if preset == "" {
		preset = defaultPreset
	}
	settings := s.Settings
	if preset != "" {
		base, err := timeseries.Preset(preset)
		if err != nil {
			return nil, err
		}
		settings = base.Merge(s.Settings)
	}
	return timeseries.NewStress(series, settings)
}

func (f *File) series(s *Series, defaultName string) (timeseries.Series, error) {
	name := s.Name
	if s.File != "" {
		path := s.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(f.dir, path)
		}
		return timeseries.ReadCSVFile(path, name)
	}

	if name == "" {
		name = defaultName
	}
	start, err := timeseries.ParseTime(s.Start)
	if err != nil {
		return timeseries.Series{}, err
	}
	freq := timeseries.Daily
	if s.Freq != "" {
		freq = timeseries.Freq(s.Freq)
	}
	step, err := freq.Step()
	if err != nil {
		return timeseries.Series{}, err
	}
	return timeseries.Regular(name, start, step, s.Values), nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
