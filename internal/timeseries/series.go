package timeseries

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalidSeries is returned when a series has mismatched lengths or a
// non-increasing index.
var ErrInvalidSeries = errors.New("timeseries: invalid series")

// Series is a named, strictly increasing time index with one value per
// timestamp. Values may be NaN.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// New validates and returns a Series. Timestamps are converted to UTC.
func New(name string, index []time.Time, values []float64) (Series, error) {
	if len(index) != len(values) {
		return Series{}, fmt.Errorf("%w: %q has %d timestamps and %d values",
			ErrInvalidSeries, name, len(index), len(values))
	}
	idx := make([]time.Time, len(index))
	for i, t := range index {
		idx[i] = t.UTC()
		if i > 0 && !idx[i].After(idx[i-1]) {
			return Series{}, fmt.Errorf("%w: %q index not strictly increasing at %s",
				ErrInvalidSeries, name, idx[i].Format(time.RFC3339))
		}
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return Series{Name: name, Index: idx, Values: vals}, nil
}

// MustNew is like New but panics on error. Use only in tests or with inputs
// known to be valid.
func MustNew(name string, index []time.Time, values []float64) Series {
	s, err := New(name, index, values)
	if err != nil {
		panic(err)
	}
	return s
}

// Regular builds a series on a regular index starting at start.
func Regular(name string, start time.Time, step time.Duration, values []float64) Series {
	idx := make([]time.Time, len(values))
	for i := range values {
		idx[i] = start.UTC().Add(time.Duration(i) * step)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return Series{Name: name, Index: idx, Values: vals}
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Index)
}

// Empty reports whether the series has no samples.
func (s Series) Empty() bool {
	return len(s.Index) == 0
}

// Tmin returns the first timestamp, or the zero time for an empty series.
func (s Series) Tmin() time.Time {
	if len(s.Index) == 0 {
		return time.Time{}
	}
	return s.Index[0]
}

// Tmax returns the last timestamp, or the zero time for an empty series.
func (s Series) Tmax() time.Time {
	if len(s.Index) == 0 {
		return time.Time{}
	}
	return s.Index[len(s.Index)-1]
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	idx := make([]time.Time, len(s.Index))
	copy(idx, s.Index)
	vals := make([]float64, len(s.Values))
	copy(vals, s.Values)
	return Series{Name: s.Name, Index: idx, Values: vals}
}

// WithName returns a copy of the series carrying a different name.
func (s Series) WithName(name string) Series {
	c := s.Clone()
	c.Name = name
	return c
}

// Search returns the position of the first timestamp not before t.
func (s Series) Search(t time.Time) int {
	return sort.Search(len(s.Index), func(i int) bool {
		return !s.Index[i].Before(t)
	})
}

// IndexOf returns the position of t in the index.
func (s Series) IndexOf(t time.Time) (int, bool) {
	i := s.Search(t)
	if i < len(s.Index) && s.Index[i].Equal(t) {
		return i, true
	}
	return i, false
}

// Slice returns the samples within [tmin, tmax]. A zero bound is open.
func (s Series) Slice(tmin, tmax time.Time) Series {
	lo := 0
	if !tmin.IsZero() {
		lo = s.Search(tmin)
	}
	hi := len(s.Index)
	if !tmax.IsZero() {
		hi = sort.Search(len(s.Index), func(i int) bool {
			return s.Index[i].After(tmax)
		})
	}
	if hi < lo {
		hi = lo
	}
	out := Series{
		Name:   s.Name,
		Index:  make([]time.Time, hi-lo),
		Values: make([]float64, hi-lo),
	}
	copy(out.Index, s.Index[lo:hi])
	copy(out.Values, s.Values[lo:hi])
	return out
}

// Take returns the samples at the given positions, in order.
func (s Series) Take(positions []int) Series {
	out := Series{
		Name:   s.Name,
		Index:  make([]time.Time, len(positions)),
		Values: make([]float64, len(positions)),
	}
	for i, p := range positions {
		out.Index[i] = s.Index[p]
		out.Values[i] = s.Values[p]
	}
	return out
}

// DropNaN returns the series without NaN values.
func (s Series) DropNaN() Series {
	out := Series{Name: s.Name}
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		out.Index = append(out.Index, s.Index[i])
		out.Values = append(out.Values, v)
	}
	return out
}

// HasNaN reports whether any value is NaN.
func (s Series) HasNaN() bool {
	for _, v := range s.Values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Mean returns the mean of the non-NaN values, or NaN when there are none.
func (s Series) Mean() float64 {
	valid := s.DropNaN().Values
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

// Min returns the smallest non-NaN value, or NaN when there are none.
func (s Series) Min() float64 {
	out := math.NaN()
	for _, v := range s.Values {
		if !math.IsNaN(v) && (math.IsNaN(out) || v < out) {
			out = v
		}
	}
	return out
}

// Max returns the largest non-NaN value, or NaN when there are none.
func (s Series) Max() float64 {
	out := math.NaN()
	for _, v := range s.Values {
		if !math.IsNaN(v) && (math.IsNaN(out) || v > out) {
			out = v
		}
	}
	return out
}

// InferFreq returns the frequency of an equidistant series, or "" when the
// spacing is irregular or there are fewer than two samples.
func (s Series) InferFreq() Freq {
	if len(s.Index) < 2 {
		return ""
	}
	step := s.Index[1].Sub(s.Index[0])
	for i := 2; i < len(s.Index); i++ {
		if s.Index[i].Sub(s.Index[i-1]) != step {
			return ""
		}
	}
	return FreqOf(step)
}

// Deltas returns the elapsed time in days since the previous sample. The
// first element is NaN.
func (s Series) Deltas() Series {
	out := Series{
		Name:   s.Name,
		Index:  make([]time.Time, len(s.Index)),
		Values: make([]float64, len(s.Index)),
	}
	copy(out.Index, s.Index)
	for i := range s.Index {
		if i == 0 {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = float64(s.Index[i].Sub(s.Index[i-1])) / float64(Day)
	}
	return out
}

// Lookup returns the values at the given timestamps. Timestamps absent from
// the index yield fill.
func (s Series) Lookup(at []time.Time, fill float64) []float64 {
	out := make([]float64, len(at))
	for i, t := range at {
		if j, ok := s.IndexOf(t); ok {
			out[i] = s.Values[j]
		} else {
			out[i] = fill
		}
	}
	return out
}

// Reindex returns the series on a new index. Timestamps absent from the
// original yield fill.
func (s Series) Reindex(index []time.Time, fill float64) Series {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return Series{Name: s.Name, Index: idx, Values: s.Lookup(index, fill)}
}

// Interpolate evaluates the series at the given timestamps by linear
// interpolation on the nanosecond encoding of time. Timestamps outside the
// index take the nearest end value.
func (s Series) Interpolate(at []time.Time) []float64 {
	out := make([]float64, len(at))
	n := len(s.Index)
	if n == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i, t := range at {
		j := s.Search(t)
		switch {
		case j < n && s.Index[j].Equal(t):
			out[i] = s.Values[j]
		case j == 0:
			out[i] = s.Values[0]
		case j == n:
			out[i] = s.Values[n-1]
		default:
			x0 := float64(s.Index[j-1].UnixNano())
			x1 := float64(s.Index[j].UnixNano())
			w := (float64(t.UnixNano()) - x0) / (x1 - x0)
			out[i] = s.Values[j-1] + w*(s.Values[j]-s.Values[j-1])
		}
	}
	return out
}

// seriesJSON is the wire form of a Series. NaN values are encoded as null.
type seriesJSON struct {
	Name   string      `json:"name"`
	Index  []time.Time `json:"index"`
	Values []*float64  `json:"values"`
}

// MarshalJSON implements json.Marshaler.
func (s Series) MarshalJSON() ([]byte, error) {
	w := seriesJSON{
		Name:   s.Name,
		Index:  s.Index,
		Values: make([]*float64, len(s.Values)),
	}
	if w.Index == nil {
		w.Index = []time.Time{}
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		w.Values[i] = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Series) UnmarshalJSON(data []byte) error {
	var w seriesJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	values := make([]float64, len(w.Values))
	for i, v := range w.Values {
		if v == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *v
	}
	out, err := New(w.Name, w.Index, values)
	if err != nil {
		return err
	}
	*s = out
	return nil
}
