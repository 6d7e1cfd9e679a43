package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when parsing the index column.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a timestamp in one of the accepted layouts. Timestamps
// without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported layout", s)
}

// ReadCSV reads a two-column CSV (timestamp, value) with a header row. The
// series is named after the value column unless name is non-empty. Empty
// values and "nan" are read as NaN. Rows must be in increasing time order.
func ReadCSV(r io.Reader, name string) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Series{}, fmt.Errorf("read csv: empty input")
		}
		return Series{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		return Series{}, fmt.Errorf("read csv: expected at least 2 columns, got %d", len(header))
	}
	if name == "" {
		name = strings.TrimSpace(header[1])
	}

	var (
		index  []time.Time
		values []float64
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(rec) < 2 {
			return Series{}, fmt.Errorf("read csv line %d: expected 2 columns", line)
		}
		t, err := ParseTime(rec[0])
		if err != nil {
			return Series{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		v, err := parseValue(rec[1])
		if err != nil {
			return Series{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		index = append(index, t)
		values = append(values, v)
	}
	return New(name, index, values)
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path, name string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()
	s, err := ReadCSV(f, name)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteCSV writes one or more series sharing an index as CSV. The first
// series determines the index; values of the others are looked up by
// timestamp and written empty when absent.
func WriteCSV(w io.Writer, series ...Series) error {
	if len(series) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	header := []string{"time"}
	for _, s := range series {
		header = append(header, s.Name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	cols := make([][]float64, len(series))
	for i, s := range series {
		cols[i] = s.Lookup(series[0].Index, math.NaN())
	}
	for row, t := range series[0].Index {
		rec := []string{t.Format(time.RFC3339)}
		for i := range series {
			rec = append(rec, formatValue(cols[i][row]))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	return v, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
