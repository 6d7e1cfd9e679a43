package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// Upsampling methods, used when the target step is shorter than the
// original step.
const (
	SampleUpBackfill    = "bfill"
	SampleUpDivide      = "divide"
	SampleUpInterpolate = "interpolate"
)

// Downsampling methods, used when several original samples fall in one
// target step.
const (
	SampleDownSum  = "sum"
	SampleDownMean = "mean"
	SampleDownMax  = "max"
	SampleDownMin  = "min"
	SampleDownLast = "last"
)

// Fill methods for missing values.
const (
	FillInterpolate = "interpolate"
	FillMean        = "mean"
	FillZero        = "zero"
	FillDrop        = "drop"
	FillBackfill    = "bfill"
	FillForwardfill = "ffill"
)

// Settings controls how a Stress is resampled and filled.
type Settings struct {
	Freq       Freq   `json:"freq,omitempty" yaml:"freq,omitempty"`
	SampleUp   string `json:"sample_up,omitempty" yaml:"sample_up,omitempty" validate:"omitempty,oneof=bfill divide interpolate"`
	SampleDown string `json:"sample_down,omitempty" yaml:"sample_down,omitempty" validate:"omitempty,oneof=sum mean max min last"`
	FillNaN    string `json:"fill_nan,omitempty" yaml:"fill_nan,omitempty" validate:"omitempty,oneof=interpolate mean zero drop"`
	FillBefore string `json:"fill_before,omitempty" yaml:"fill_before,omitempty" validate:"omitempty,oneof=mean bfill zero"`
	FillAfter  string `json:"fill_after,omitempty" yaml:"fill_after,omitempty" validate:"omitempty,oneof=mean ffill zero"`
}

var presets = map[string]Settings{
	"oseries": {
		FillNaN: FillDrop,
	},
	"prec": {
		SampleUp:   SampleUpBackfill,
		SampleDown: SampleDownMean,
		FillNaN:    FillZero,
		FillBefore: FillMean,
		FillAfter:  FillMean,
	},
	"evap": {
		SampleUp:   SampleUpBackfill,
		SampleDown: SampleDownMean,
		FillNaN:    FillInterpolate,
		FillBefore: FillMean,
		FillAfter:  FillMean,
	},
	"well": {
		SampleUp:   SampleUpBackfill,
		SampleDown: SampleDownMean,
		FillNaN:    FillZero,
		FillBefore: FillZero,
		FillAfter:  FillZero,
	},
	"waterlevel": {
		SampleUp:   SampleUpInterpolate,
		SampleDown: SampleDownMean,
		FillNaN:    FillInterpolate,
		FillBefore: FillMean,
		FillAfter:  FillMean,
	},
}

// Preset returns the settings registered under name.
func Preset(name string) (Settings, error) {
	s, ok := presets[name]
	if !ok {
		return Settings{}, fmt.Errorf("unknown settings preset %q", name)
	}
	return s, nil
}

// PresetNames lists the registered presets.
func PresetNames() []string {
	return []string{"evap", "oseries", "prec", "waterlevel", "well"}
}

var validate = validator.New()

// Validate checks the enumerated fields and the frequency.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid stress settings: %w", err)
	}
	if !s.Freq.IsZero() {
		if err := s.Freq.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns s with every non-empty field of o applied on top.
func (s Settings) Merge(o Settings) Settings {
	if !o.Freq.IsZero() {
		s.Freq = o.Freq
	}
	if o.SampleUp != "" {
		s.SampleUp = o.SampleUp
	}
	if o.SampleDown != "" {
		s.SampleDown = o.SampleDown
	}
	if o.FillNaN != "" {
		s.FillNaN = o.FillNaN
	}
	if o.FillBefore != "" {
		s.FillBefore = o.FillBefore
	}
	if o.FillAfter != "" {
		s.FillAfter = o.FillAfter
	}
	return s
}

// Stress is a forcing or observed series together with its resampling
// settings. The original series is never modified; Update produces the
// working series read by Series.
type Stress struct {
	original     Series
	settings     Settings
	freqOriginal Freq
	series       Series
}

// NewStress validates the settings and wraps the series. The working series
// starts out as the original with missing values handled per FillNaN.
func NewStress(s Series, settings Settings) (*Stress, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if s.Empty() {
		return nil, fmt.Errorf("stress %q: %w: no samples", s.Name, ErrInvalidSeries)
	}
	st := &Stress{
		original:     s.Clone(),
		settings:     settings,
		freqOriginal: s.InferFreq(),
	}
	st.series = st.fillInterior(st.original.Clone())
	return st, nil
}

// NewPresetStress wraps the series with a named preset.
func NewPresetStress(s Series, preset string) (*Stress, error) {
	settings, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	return NewStress(s, settings)
}

// Name returns the name of the original series.
func (s *Stress) Name() string { return s.original.Name }

// Original returns a copy of the original series.
func (s *Stress) Original() Series { return s.original.Clone() }

// Settings returns the resampling settings.
func (s *Stress) Settings() Settings { return s.settings }

// FreqOriginal returns the inferred spacing of the original series, or ""
// when it is irregular.
func (s *Stress) FreqOriginal() Freq { return s.freqOriginal }

// Freq returns the configured frequency if set, else the original one.
func (s *Stress) Freq() Freq {
	if !s.settings.Freq.IsZero() {
		return s.settings.Freq
	}
	return s.freqOriginal
}

// Tmin returns the start of the original series.
func (s *Stress) Tmin() time.Time { return s.original.Tmin() }

// Tmax returns the end of the original series.
func (s *Stress) Tmax() time.Time { return s.original.Tmax() }

// Mean returns the mean of the original series.
func (s *Stress) Mean() float64 { return s.original.Mean() }

// Series returns the working series produced by the last Update.
func (s *Stress) Series() Series { return s.series.Clone() }

// Update resamples the original series onto the regular index
// tmin, tmin+step, ..., tmax. Zero bounds default to the original extent.
// The configured frequency in Settings is left untouched.
func (s *Stress) Update(freq Freq, tmin, tmax time.Time) error {
	out, err := s.Resampled(freq, tmin, tmax)
	if err != nil {
		return fmt.Errorf("update stress %q: %w", s.Name(), err)
	}
	s.series = out
	return nil
}

// Resampled is like Update but returns the result without storing it. It
// is safe for concurrent use as long as Update is not running.
func (s *Stress) Resampled(freq Freq, tmin, tmax time.Time) (Series, error) {
	step, err := freq.Step()
	if err != nil {
		return Series{}, err
	}
	if tmin.IsZero() {
		tmin = s.original.Tmin()
	}
	if tmax.IsZero() {
		tmax = s.original.Tmax()
	}
	axis := Range(tmin.UTC(), tmax.UTC(), step)
	out := s.resample(axis, step)
	return s.fillInterior(s.fillEnds(out)), nil
}

// resample places the original samples on axis. Target slots with no
// original sample are NaN.
func (s *Stress) resample(axis []time.Time, step time.Duration) Series {
	orig := s.original
	out := Series{
		Name:   orig.Name,
		Index:  axis,
		Values: make([]float64, len(axis)),
	}
	origStep, _ := s.freqOriginal.Step()
	upsample := origStep > step

	for k, t := range axis {
		if upsample {
			out.Values[k] = s.sampleUp(t, step, origStep)
			continue
		}
		out.Values[k] = s.sampleDown(t, step)
	}
	return out
}

func (s *Stress) sampleUp(t time.Time, step, origStep time.Duration) float64 {
	orig := s.original
	j := orig.Search(t)
	if j >= orig.Len() || !orig.Index[j].Add(-origStep).Before(t) {
		return math.NaN()
	}
	switch s.settings.SampleUp {
	case SampleUpDivide:
		return orig.Values[j] * float64(step) / float64(origStep)
	case SampleUpInterpolate:
		if t.Before(orig.Tmin()) {
			return math.NaN()
		}
		return orig.Interpolate([]time.Time{t})[0]
	default:
		return orig.Values[j]
	}
}

// sampleDown aggregates the original samples in (t-step, t].
func (s *Stress) sampleDown(t time.Time, step time.Duration) float64 {
	orig := s.original
	lo := orig.Search(t.Add(-step))
	if lo < orig.Len() && orig.Index[lo].Equal(t.Add(-step)) {
		lo++
	}
	var (
		n   int
		agg float64
	)
	for j := lo; j < orig.Len() && !orig.Index[j].After(t); j++ {
		v := orig.Values[j]
		if math.IsNaN(v) {
			continue
		}
		switch {
		case n == 0:
			agg = v
		case s.settings.SampleDown == SampleDownMax:
			agg = math.Max(agg, v)
		case s.settings.SampleDown == SampleDownMin:
			agg = math.Min(agg, v)
		case s.settings.SampleDown == SampleDownLast:
			agg = v
		default:
			agg += v
		}
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	if s.settings.SampleDown == SampleDownMean || s.settings.SampleDown == "" {
		return agg / float64(n)
	}
	return agg
}

// fillEnds fills NaN values outside the original extent.
func (s *Stress) fillEnds(out Series) Series {
	first, last := math.NaN(), math.NaN()
	if valid := out.DropNaN(); !valid.Empty() {
		first = valid.Values[0]
		last = valid.Values[valid.Len()-1]
	}
	mean := s.original.Mean()
	for i, t := range out.Index {
		if !math.IsNaN(out.Values[i]) {
			continue
		}
		switch {
		case t.Before(s.original.Tmin()):
			out.Values[i] = fillValue(s.settings.FillBefore, mean, first)
		case t.After(s.original.Tmax()):
			out.Values[i] = fillValue(s.settings.FillAfter, mean, last)
		}
	}
	return out
}

func fillValue(method string, mean, edge float64) float64 {
	switch method {
	case FillMean:
		return mean
	case FillZero:
		return 0
	case FillBackfill, FillForwardfill:
		return edge
	default:
		return math.NaN()
	}
}

// fillInterior handles remaining NaN values per FillNaN. "drop" removes
// them, so the result may be irregular.
func (s *Stress) fillInterior(out Series) Series {
	if !out.HasNaN() {
		return out
	}
	switch s.settings.FillNaN {
	case FillDrop:
		return out.DropNaN()
	case FillZero, FillMean:
		v := 0.0
		if s.settings.FillNaN == FillMean {
			v = s.original.Mean()
		}
		for i := range out.Values {
			if math.IsNaN(out.Values[i]) {
				out.Values[i] = v
			}
		}
	case FillInterpolate:
		valid := out.DropNaN()
		if valid.Empty() {
			return out
		}
		for i, t := range out.Index {
			if math.IsNaN(out.Values[i]) && !t.Before(valid.Tmin()) && !t.After(valid.Tmax()) {
				out.Values[i] = valid.Interpolate([]time.Time{t})[0]
			}
		}
	}
	return out
}

// StressDump is the serialized form of a Stress.
type StressDump struct {
	Series   Series   `json:"series"`
	Settings Settings `json:"settings"`
}

// Dump returns the original series and settings.
func (s *Stress) Dump() StressDump {
	return StressDump{Series: s.original.Clone(), Settings: s.settings}
}

// LoadStress reconstructs a Stress from its dump.
func LoadStress(d StressDump) (*Stress, error) {
	return NewStress(d.Series, d.Settings)
}
