package model

import (
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/timeseries"
)

// ResolveFrequency picks the working frequency. A configured frequency on
// the observed series wins. Otherwise a single distinct candidate is used,
// and among several the one with the smallest step is chosen. Invalid
// candidates are ignored. With no candidates the result is daily and
// defaulted is true.
func ResolveFrequency(observed timeseries.Freq, candidates []timeseries.Freq) (freq timeseries.Freq, defaulted bool) {
	if !observed.IsZero() && observed.Validate() == nil {
		return observed, false
	}

	type candidate struct {
		freq timeseries.Freq
		step time.Duration
	}
	seen := map[timeseries.Freq]bool{}
	var valid []candidate
	for _, f := range candidates {
		if f.IsZero() || seen[f] {
			continue
		}
		step, err := f.Step()
		if err != nil {
			continue
		}
		seen[f] = true
		valid = append(valid, candidate{freq: f, step: step})
	}
	if len(valid) == 0 {
		return timeseries.Daily, true
	}
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].step != valid[j].step {
			return valid[i].step < valid[j].step
		}
		return valid[i].freq < valid[j].freq
	})
	return valid[0].freq, false
}

// StressFrequencies returns the frequency candidates of the stresses: the
// configured frequency when set, else the inferred original one.
func StressFrequencies(contributors []stressmodel.Contributor) []timeseries.Freq {
	var out []timeseries.Freq
	for _, c := range contributors {
		for _, s := range c.Stresses() {
			if f := s.Freq(); !f.IsZero() {
				out = append(out, f)
			}
		}
	}
	return out
}

// ResolveTimeOffset returns the offset of the stresses' start times relative
// to freq. All stresses must agree; with no stresses the offset is zero.
func ResolveTimeOffset(freq timeseries.Freq, contributors []stressmodel.Contributor) (time.Duration, error) {
	var (
		offset time.Duration
		from   string
		found  bool
	)
	for _, c := range contributors {
		for _, s := range c.Stresses() {
			off, err := timeseries.TimeOffset(s.Tmin(), freq)
			if err != nil {
				return 0, configError("%v", err)
			}
			if !found {
				offset, from, found = off, s.Name(), true
				continue
			}
			if off != offset {
				err := configError("time offsets of the stresses relative to freq %s differ: %s has %s, %s has %s",
					freq, from, offset, s.Name(), off)
				err.Component = c.Name()
				return 0, err
			}
		}
	}
	return offset, nil
}

// resolveFrequency updates the working frequency from the current
// contributors unless it has been fixed.
func (m *Model) resolveFrequency() {
	if !m.freqAuto {
		return
	}
	freq, defaulted := ResolveFrequency(m.observed.Settings().Freq, StressFrequencies(m.contributors))
	if defaulted && len(m.contributors) > 0 {
		m.notify(slog.LevelWarn, NoticeNoFrequency,
			"frequency of the model cannot be determined; using daily",
			slog.String("freq", string(freq)))
	}
	m.settings.Freq = freq
}

// BuildSimulationAxis returns the regular index from tmin - warmup to tmax
// inclusive at freq. Warmup counts base units of freq.
func BuildSimulationAxis(tmin, tmax time.Time, freq timeseries.Freq, warmup int) ([]time.Time, error) {
	step, err := freq.Step()
	if err != nil {
		return nil, configError("%v", err)
	}
	unit, _ := freq.Unit()
	if warmup < 0 {
		return nil, configError("warmup must not be negative, got %d", warmup)
	}
	if !tmax.After(tmin) {
		return nil, configError("tmax %s is not after tmin %s", tmax.Format(time.RFC3339), tmin.Format(time.RFC3339))
	}
	start := tmin.Add(-time.Duration(warmup) * unit)
	return timeseries.Range(start, tmax, step), nil
}
