package noise

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pastas/internal/timeseries"
)

func TestAR1_Parameters(t *testing.T) {
	n := NewAR1("")
	rows := n.Parameters()
	require.Len(t, rows, 1)
	assert.Equal(t, "noise_alpha", rows[0].Name)
	assert.Equal(t, 14.0, rows[0].Initial)
}

func TestWeights_EquidistantAreOne(t *testing.T) {
	w := Weights([]float64{math.NaN(), 1, 1, 1}, 10)
	assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, w, 1e-12)
}

func TestWeights_GeometricMeanIsOne(t *testing.T) {
	w := Weights([]float64{math.NaN(), 1, 5, 2}, 7)
	prod := 1.0
	for _, v := range w[1:] {
		prod *= v
	}
	assert.InDelta(t, 1.0, prod, 1e-12)
}

func TestAR1_Simulate(t *testing.T) {
	n := NewAR1("noise")
	res := timeseries.Regular("res", time.Unix(0, 0).UTC(), timeseries.Day, []float64{1, 2, 3})
	odelt := []float64{math.NaN(), 1, 1}

	v, err := n.Simulate(res, odelt, []float64{2})
	require.NoError(t, err)
	require.Equal(t, 3, v.Len())
	phi := math.Exp(-0.5)
	assert.InDeltaSlice(t, []float64{1, 2 - phi, 3 - 2*phi}, v.Values, 1e-12)
	assert.Equal(t, []float64{1, 2, 3}, res.Values)

	_, err = n.Simulate(res, []float64{1}, []float64{2})
	assert.Error(t, err)
}

func TestDumpLoad(t *testing.T) {
	back, err := Load(NewAR1("n").Dump())
	require.NoError(t, err)
	assert.Equal(t, "n", back.Name())

	_, err = Load(Dump{Kind: "ARMA"})
	assert.Error(t, err)
}
