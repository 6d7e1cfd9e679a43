package rfunc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential_StepApproachesGain(t *testing.T) {
	e := NewExponential(true)
	s := e.Step([]float64{2, 10}, 1)

	// tmax = -10 ln(0.001) ~ 69.08 days
	require.Len(t, s, 70)
	assert.InDelta(t, 2*(1-math.Exp(-0.1)), s[0], 1e-12)
	assert.InDelta(t, 2.0, s[len(s)-1], 2*0.002)
}

func TestExponential_BlockSumsToStep(t *testing.T) {
	e := NewExponential(true)
	p := []float64{1.5, 20}
	s := e.Step(p, 1)
	b := e.Block(p, 1)
	require.Len(t, b, len(s))

	sum := 0.0
	for _, v := range b {
		sum += v
	}
	assert.InDelta(t, s[len(s)-1], sum, 1e-12)
	assert.Equal(t, s[0], b[0])
}

func TestExponential_ParametersScaleWithMeanStress(t *testing.T) {
	up := NewExponential(true).Parameters("rain", 0.002)
	require.Len(t, up, 2)
	assert.Equal(t, "rain_A", up[0].Name)
	assert.InDelta(t, 500, up[0].Initial, 1e-9)
	assert.InDelta(t, 50000, up[0].PMax, 1e-6)
	assert.Equal(t, 0.0, up[0].PMin)
	assert.Equal(t, "rain_a", up[1].Name)

	down := NewExponential(false).Parameters("well", -4)
	assert.InDelta(t, -0.25, down[0].Initial, 1e-12)
	assert.InDelta(t, -25, down[0].PMin, 1e-12)
	assert.Equal(t, 0.0, down[0].PMax)

	zero := NewExponential(true).Parameters("x", 0)
	assert.Equal(t, 1.0, zero[0].Initial)
}

func TestGamma_NEqualsOneMatchesExponential(t *testing.T) {
	g := NewGamma(true)
	e := NewExponential(true)

	gs := g.Step([]float64{1, 1, 10}, 1)
	es := e.Step([]float64{1, 10}, 1)
	require.Len(t, gs, len(es))
	assert.InDeltaSlice(t, es, gs, 1e-9)
	assert.Equal(t, 3, g.NParam())
}

func TestOne_IsInstantaneous(t *testing.T) {
	o := &One{Up: true}
	assert.Equal(t, []float64{3}, o.Block([]float64{3}, 1))
	assert.Equal(t, []float64{3}, o.Step([]float64{3}, 0.5))
}

func TestTimes_HourlyStep(t *testing.T) {
	e := NewExponential(true)
	s := e.Step([]float64{1, 1}, 1.0/24)
	// tmax ~ 6.9 days at hourly resolution
	assert.Len(t, s, int(math.Ceil(-math.Log(0.001)*24)))
}

func TestLoad(t *testing.T) {
	for _, kind := range Kinds() {
		r, err := Load(Dump{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, kind, r.Kind())

		back, err := Load(r.Dump())
		require.NoError(t, err)
		assert.Equal(t, r, back)
	}

	down := false
	r, err := Load(Dump{Kind: "Gamma", Up: &down, Cutoff: 0.99})
	require.NoError(t, err)
	assert.Equal(t, &Gamma{Up: false, Cutoff: 0.99}, r)

	_, err = Load(Dump{Kind: "Hantush"})
	assert.Error(t, err)
}
