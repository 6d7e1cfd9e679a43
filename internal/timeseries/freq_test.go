package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreq_Step(t *testing.T) {
	tests := []struct {
		freq Freq
		want time.Duration
	}{
		{"D", Day},
		{"7D", 7 * Day},
		{"H", time.Hour},
		{"h", time.Hour},
		{"3H", 3 * time.Hour},
		{"15min", 15 * time.Minute},
		{"15T", 15 * time.Minute},
		{"W", 7 * Day},
		{"s", time.Second},
		{"30S", 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			got, err := tt.freq.Step()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFreq_Invalid(t *testing.T) {
	for _, f := range []Freq{"", "M", "MS", "0D", "-1D", "xD", "ms"} {
		t.Run(string(f), func(t *testing.T) {
			err := f.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFreq)
		})
	}
}

func TestFreq_UnitAndDays(t *testing.T) {
	unit, err := Freq("7D").Unit()
	require.NoError(t, err)
	assert.Equal(t, Day, unit)

	days, err := Freq("H").Days()
	require.NoError(t, err)
	assert.InDelta(t, 1.0/24.0, days, 1e-12)
}

func TestFreqOf(t *testing.T) {
	assert.Equal(t, Freq("D"), FreqOf(Day))
	assert.Equal(t, Freq("2D"), FreqOf(48*time.Hour))
	assert.Equal(t, Freq("H"), FreqOf(time.Hour))
	assert.Equal(t, Freq("90min"), FreqOf(90*time.Minute))
	assert.Equal(t, Freq("s"), FreqOf(time.Second))
	assert.Equal(t, Freq(""), FreqOf(0))
	assert.Equal(t, Freq(""), FreqOf(time.Millisecond))
}

func TestTimeOffset(t *testing.T) {
	at8 := time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC)

	off, err := TimeOffset(at8, Daily)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, off)

	off, err = TimeOffset(at8, Hourly)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), off)

	_, err = TimeOffset(at8, "M")
	assert.Error(t, err)
}

func TestRange_Inclusive(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := Range(start, start.Add(10*Day), Day)
	require.Len(t, idx, 11)
	assert.Equal(t, start, idx[0])
	assert.Equal(t, start.Add(10*Day), idx[10])

	assert.Empty(t, Range(start, start.Add(-Day), Day))
}
