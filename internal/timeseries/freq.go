package timeseries

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFreq is returned for frequency strings that are empty, malformed
// or not fixed-step.
var ErrInvalidFreq = errors.New("timeseries: invalid frequency")

// Day is the length of one day. Elapsed times handed to response functions
// and noise models are expressed in days.
const Day = 24 * time.Hour

// Freq is a fixed-step frequency such as "D", "H", "15min" or "7D".
// The zero value means "unknown".
type Freq string

// Common frequencies.
const (
	Daily  Freq = "D"
	Hourly Freq = "H"
	Weekly Freq = "W"
)

// units maps a frequency suffix to its base unit. Longer suffixes are matched
// first so that "min" is not read as "m"-something.
var units = []struct {
	suffix string
	unit   time.Duration
}{
	{"min", time.Minute},
	{"T", time.Minute},
	{"S", time.Second},
	{"s", time.Second},
	{"H", time.Hour},
	{"h", time.Hour},
	{"D", Day},
	{"d", Day},
	{"W", 7 * Day},
}

// parse splits the frequency into a multiplier and a base unit.
func (f Freq) parse() (int, time.Duration, error) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty", ErrInvalidFreq)
	}
	for _, u := range units {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		num := strings.TrimSuffix(s, u.suffix)
		if num == "" {
			return 1, u.unit, nil
		}
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidFreq, string(f))
		}
		return n, u.unit, nil
	}
	return 0, 0, fmt.Errorf("%w: %q is not a fixed-step frequency", ErrInvalidFreq, string(f))
}

// Validate reports whether f is a well-formed fixed-step frequency.
func (f Freq) Validate() error {
	_, _, err := f.parse()
	return err
}

// IsZero reports whether no frequency is set.
func (f Freq) IsZero() bool {
	return strings.TrimSpace(string(f)) == ""
}

// Step returns the length of one step.
func (f Freq) Step() (time.Duration, error) {
	n, unit, err := f.parse()
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}

// Unit returns the base unit of the frequency: a day for "7D", an hour for
// "H". Warmup lengths are counted in this unit.
func (f Freq) Unit() (time.Duration, error) {
	_, unit, err := f.parse()
	return unit, err
}

// Days returns the step length in days. This is the dt handed to response
// functions.
func (f Freq) Days() (float64, error) {
	step, err := f.Step()
	if err != nil {
		return 0, err
	}
	return float64(step) / float64(Day), nil
}

// String implements fmt.Stringer.
func (f Freq) String() string {
	return string(f)
}

// FreqOf returns the canonical frequency string for a step length, using the
// largest unit that divides it: 48h becomes "2D", 90m becomes "90min".
// Returns "" for non-positive steps or steps that are not whole seconds.
func FreqOf(step time.Duration) Freq {
	switch {
	case step <= 0:
		return ""
	case step%Day == 0:
		return withMultiplier(int64(step/Day), "D")
	case step%time.Hour == 0:
		return withMultiplier(int64(step/time.Hour), "H")
	case step%time.Minute == 0:
		return withMultiplier(int64(step/time.Minute), "min")
	case step%time.Second == 0:
		return withMultiplier(int64(step/time.Second), "s")
	default:
		return ""
	}
}

func withMultiplier(n int64, suffix string) Freq {
	if n == 1 {
		return Freq(suffix)
	}
	return Freq(strconv.FormatInt(n, 10) + suffix)
}

// TimeOffset returns how far t lies past the most recent step boundary of
// freq. Daily values recorded at 08:00 have an offset of 8h relative to "D".
func TimeOffset(t time.Time, freq Freq) (time.Duration, error) {
	step, err := freq.Step()
	if err != nil {
		return 0, err
	}
	t = t.UTC()
	return t.Sub(t.Truncate(step)), nil
}

// Range returns the regular index start, start+step, ... up to and including
// end. An empty slice is returned when end is before start.
func Range(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 || end.Before(start) {
		return []time.Time{}
	}
	n := int(end.Sub(start)/step) + 1
	out := make([]time.Time, 0, n)
	for t := start; !t.After(end); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}
