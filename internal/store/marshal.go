package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/roach88/pastas/internal/canon"
	"github.com/roach88/pastas/internal/model"
)

// marshalDump converts a dump to canonical JSON TEXT for storage.
func marshalDump(d model.Dump) (string, error) {
	data, err := canon.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal dump: %w", err)
	}
	return string(data), nil
}

// unmarshalDump parses a stored dump.
func unmarshalDump(data string) (model.Dump, error) {
	var d model.Dump
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return model.Dump{}, fmt.Errorf("unmarshal dump: %w", err)
	}
	return d, nil
}

// ModelHash returns the content address of a dump. File info is excluded,
// so re-saving an unchanged model yields the same hash.
func ModelHash(d model.Dump) (string, error) {
	d.FileInfo = model.FileInfo{}
	return canon.ModelHash(d)
}

// nullFloat maps NaN to NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// floatOf maps NULL to NaN.
func floatOf(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
