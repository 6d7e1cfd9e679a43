package model

import (
	"time"

	"github.com/roach88/pastas/internal/timeseries"
)

// ResolveBounds returns the calibration bounds. Zero bounds are derived
// from the observed extent when useObserved is set, else from the union
// extent of the stresses when useStresses is set, else from the period all
// stresses share. Explicit bounds are clipped to the observed extent when
// useObserved is set. Both bounds are then aligned to the time offset of
// the stresses.
func (m *Model) ResolveBounds(tmin, tmax time.Time, freq timeseries.Freq, useObserved, useStresses bool) (time.Time, time.Time, error) {
	if err := freq.Validate(); err != nil {
		return time.Time{}, time.Time{}, configError("%v", err)
	}
	obs := m.observed.Series()
	if !useObserved && len(m.contributors) == 0 && (tmin.IsZero() || tmax.IsZero()) {
		return time.Time{}, time.Time{}, configError("no stresses to derive the time bounds from")
	}

	switch {
	case tmin.IsZero() && useObserved:
		tmin = obs.Tmin()
	case tmin.IsZero() && useStresses:
		tmin = m.stressExtent(func(a, b time.Time) bool { return a.Before(b) }, true)
	case tmin.IsZero():
		tmin = m.stressExtent(func(a, b time.Time) bool { return a.After(b) }, true)
	case useObserved && tmin.Before(obs.Tmin()):
		tmin = obs.Tmin()
	}
	switch {
	case tmax.IsZero() && useObserved:
		tmax = obs.Tmax()
	case tmax.IsZero() && useStresses:
		tmax = m.stressExtent(func(a, b time.Time) bool { return a.After(b) }, false)
	case tmax.IsZero():
		tmax = m.stressExtent(func(a, b time.Time) bool { return a.Before(b) }, false)
	case useObserved && tmax.After(obs.Tmax()):
		tmax = obs.Tmax()
	}

	var err error
	if tmin, err = m.alignOffset(tmin.UTC(), freq); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if tmax, err = m.alignOffset(tmax.UTC(), freq); err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !tmax.After(tmin) {
		return time.Time{}, time.Time{}, configError("tmax %s is not after tmin %s",
			tmax.Format(time.RFC3339), tmin.Format(time.RFC3339))
	}
	if obs.Slice(tmin, tmax).Empty() {
		return time.Time{}, time.Time{}, configError("no observations between tmin %s and tmax %s",
			tmin.Format(time.RFC3339), tmax.Format(time.RFC3339))
	}
	return tmin, tmax, nil
}

// stressExtent folds the stress start (or end) times with better.
func (m *Model) stressExtent(better func(a, b time.Time) bool, start bool) time.Time {
	var out time.Time
	for _, c := range m.contributors {
		t := c.Tmax()
		if start {
			t = c.Tmin()
		}
		if out.IsZero() || better(t, out) {
			out = t
		}
	}
	return out
}

// alignOffset moves t onto the model grid: its own offset relative to freq
// is replaced by the time offset of the stresses.
func (m *Model) alignOffset(t time.Time, freq timeseries.Freq) (time.Time, error) {
	off, err := timeseries.TimeOffset(t, freq)
	if err != nil {
		return time.Time{}, configError("%v", err)
	}
	return t.Add(-off).Add(m.settings.TimeOffset), nil
}

// BuildCalibrationSet restricts observed to [tmin, tmax] and keeps, for
// every timestamp of axis, the nearest observation. Ties go to the earlier
// observation. No two kept observations share the same nearest axis
// timestamp; of such a pair the one closer to it stays. Kept observations
// retain their original timestamp and value.
func BuildCalibrationSet(observed timeseries.Series, tmin, tmax time.Time, axis []time.Time) timeseries.Series {
	calib := observed.Slice(tmin, tmax)
	if calib.Empty() || len(axis) == 0 {
		return calib
	}
	n := calib.Len()
	keep := make([]bool, n)
	for _, t := range axis {
		keep[nearest(calib.Index, t)] = true
	}

	// Nearest slots are non-decreasing in time, so a shared slot can only
	// occur between consecutive kept observations.
	positions := make([]int, 0, n)
	lastSlot := -1
	for i, k := range keep {
		if !k {
			continue
		}
		slot := nearest(axis, calib.Index[i])
		if len(positions) > 0 && slot == lastSlot {
			prev := positions[len(positions)-1]
			if distance(calib.Index[i], axis[slot]) < distance(calib.Index[prev], axis[slot]) {
				positions[len(positions)-1] = i
			}
			continue
		}
		positions = append(positions, i)
		lastSlot = slot
	}
	return calib.Take(positions)
}

func distance(a, b time.Time) time.Duration {
	if a.Before(b) {
		return b.Sub(a)
	}
	return a.Sub(b)
}

// nearest returns the position in the sorted index closest to t. Times
// outside the index map to the nearest end.
func nearest(index []time.Time, t time.Time) int {
	s := timeseries.Series{Index: index}
	j := s.Search(t)
	switch {
	case j == 0:
		return 0
	case j == len(index):
		return len(index) - 1
	case index[j].Equal(t):
		return j
	}
	before := t.Sub(index[j-1])
	after := index[j].Sub(t)
	if after < before {
		return j
	}
	return j - 1
}
