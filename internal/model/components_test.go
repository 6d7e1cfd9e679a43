package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pastas/internal/rfunc"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/testutil"
	"github.com/roach88/pastas/internal/transform"
)

func TestNew_DefaultComponents(t *testing.T) {
	m, _ := newTestModel(t, testutil.Constant("head", day(0), 30, 5))

	assert.Equal(t, "head", m.Name())
	require.NotNil(t, m.Constant())
	require.NotNil(t, m.NoiseModel())
	assert.True(t, m.Settings().Noise)
	assert.Equal(t, DefaultWarmup, m.Settings().Warmup)
	assert.Equal(t, []string{"constant_d", "noise_alpha"}, m.Registry().Names())
	assert.Equal(t, testutil.Epoch, m.FileInfo().Created)
	assert.Equal(t, StateUninitialized, m.State())
}

func TestNew_Options(t *testing.T) {
	m, _ := newTestModel(t, testutil.Constant("head", day(0), 30, 5),
		WithName("well 12"), WithConstant(false), WithNoise(false),
		WithWarmup(100), WithMetadata(map[string]string{"x": "1"}))

	assert.Equal(t, "well 12", m.Name())
	assert.Nil(t, m.Constant())
	assert.Nil(t, m.NoiseModel())
	assert.Equal(t, 0, m.Registry().Len())
	assert.Equal(t, 100, m.Settings().Warmup)
	assert.Equal(t, map[string]string{"x": "1"}, m.Metadata())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.True(t, IsConfigurationError(err))

	obs := presetStress(t, testutil.Constant("head", day(0), 10, 1), "oseries")
	_, err = New(obs, WithWarmup(-1))
	assert.True(t, IsConfigurationError(err))

	_, err = New(obs, WithFreq("bogus"))
	assert.True(t, IsConfigurationError(err))
}

func TestAddStressModel_DuplicateIsNoOp(t *testing.T) {
	m, _, rec := syntheticModel(t, 400)
	before := m.Registry()

	err := m.AddStressModel(rechargeModel(t, testutil.Precipitation(day(0), 400), testutil.Evaporation(day(0), 400)), false)
	require.NoError(t, err)

	assert.Same(t, before, m.Registry())
	assert.Len(t, m.Contributors(), 1)
	assert.Equal(t, 1, rec.Count(NoticeDuplicateName))
}

func TestAddStressModel_ReplaceKeepsPosition(t *testing.T) {
	m, _ := newTestModel(t, testutil.Constant("head", day(0), 30, 5))
	s := testutil.Constant("s", day(0), 30, 1)
	require.NoError(t, m.AddStressModel(stressModel(t, "a", s, "well", rfunc.NewExponential(true)), false))
	require.NoError(t, m.AddStressModel(stressModel(t, "b", s, "well", rfunc.NewExponential(true)), false))

	require.NoError(t, m.AddStressModel(stressModel(t, "a", s, "well", rfunc.NewGamma(true)), true))

	cs := m.Contributors()
	require.Len(t, cs, 2)
	assert.Equal(t, "a", cs[0].Name())
	assert.Equal(t, 3, cs[0].NParam())
	off, n, _ := m.Registry().Offset("b")
	assert.Equal(t, 3, off)
	assert.Equal(t, 2, n)
}

func TestAddStressModel_OffsetConflictRollsBack(t *testing.T) {
	m, _ := newTestModel(t, testutil.Constant("head", day(0), 30, 5))
	a := testutil.Constant("a", day(0), 30, 1)
	require.NoError(t, m.AddStressModel(stressModel(t, "a", a, "well", rfunc.NewExponential(true)), false))
	before := m.Registry()

	shifted := testutil.Shift(testutil.Constant("b", day(0), 30, 1), 6*time.Hour)
	err := m.AddStressModel(stressModel(t, "b", shifted, "well", rfunc.NewExponential(true)), false)

	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Len(t, m.Contributors(), 1)
	assert.Same(t, before, m.Registry())
}

func TestAddStressModel_ResetsOptimal(t *testing.T) {
	m, _, _ := syntheticModel(t, 400)
	m.registry = m.registry.withFit([]float64{1, 2, -1, 3, 0.5}, []float64{0, 0, 0, 0, 0})

	well := testutil.Constant("well", day(0), 400, 2)
	require.NoError(t, m.AddStressModel(stressModel(t, "well", well, "well", rfunc.NewExponential(false)), false))

	for _, row := range m.Registry().Rows() {
		assert.False(t, row.HasOptimal(), row.Name)
	}
}

func TestRemoveStressModel(t *testing.T) {
	m, _, _ := syntheticModel(t, 400)
	well := testutil.Constant("well", day(0), 400, 2)
	require.NoError(t, m.AddStressModel(stressModel(t, "well", well, "well", rfunc.NewExponential(false)), false))
	m.registry = m.registry.withFit([]float64{1, 2, -1, 4, 5, 3, 0.5}, make([]float64, 7))

	require.NoError(t, m.RemoveStressModel("recharge"))

	assert.Equal(t, []string{"well_A", "well_a", "constant_d", "noise_alpha"}, m.Registry().Names())
	row, _ := m.Registry().Row("constant_d")
	assert.Equal(t, 3.0, row.Optimal)

	err := m.RemoveStressModel("recharge")
	assert.True(t, IsInvalidStateError(err))
}

func TestRemoveMissingComponents_Notify(t *testing.T) {
	m, rec := newTestModel(t, testutil.Constant("head", day(0), 30, 5), WithConstant(false), WithNoise(false))

	require.NoError(t, m.RemoveConstant())
	require.NoError(t, m.RemoveTransform())
	require.NoError(t, m.RemoveNoiseModel())

	assert.Equal(t, 3, rec.Count(NoticeMissingComponent))
}

func TestTransformAndNoise_AddRemove(t *testing.T) {
	obs := testutil.Constant("head", day(0), 30, 5)
	m, _ := newTestModel(t, obs)

	tr, err := transform.ForSeries("threshold", 2, obs)
	require.NoError(t, err)
	require.NoError(t, m.AddTransform(tr))
	assert.Equal(t, []string{"constant_d", "threshold_1", "threshold_2", "noise_alpha"}, m.Registry().Names())

	require.NoError(t, m.RemoveNoiseModel())
	assert.False(t, m.Settings().Noise)
	assert.Nil(t, m.NoiseModel())

	require.NoError(t, m.RemoveTransform())
	require.NoError(t, m.RemoveConstant())
	assert.Equal(t, 0, m.Registry().Len())

	require.NoError(t, m.AddConstant(stressmodel.NewConstant("level", 2)))
	assert.Equal(t, []string{"level_d"}, m.Registry().Names())
}

func TestSetParameter(t *testing.T) {
	m, _, _ := syntheticModel(t, 400)

	require.NoError(t, m.SetParameter("recharge_a", Override{Initial: floatPtr(100), Vary: boolPtr(false)}))
	row, _ := m.Registry().Row("recharge_a")
	assert.Equal(t, 100.0, row.Initial)
	assert.False(t, row.Vary)

	require.NoError(t, m.SetParameter("recharge_a", Override{PMax: floatPtr(500)}))
	row, _ = m.Registry().Row("recharge_a")
	assert.Equal(t, 100.0, row.Initial, "earlier override kept")
	assert.Equal(t, 500.0, row.PMax)

	// Overrides survive a structural rebuild.
	well := testutil.Constant("well", day(0), 400, 2)
	require.NoError(t, m.AddStressModel(stressModel(t, "well", well, "well", rfunc.NewExponential(false)), false))
	row, _ = m.Registry().Row("recharge_a")
	assert.Equal(t, 100.0, row.Initial)

	err := m.SetParameter("nope", Override{Initial: floatPtr(1)})
	assert.True(t, IsInvalidStateError(err))
}

func TestStructuralChange_DiscardsSession(t *testing.T) {
	m, _, _ := syntheticModel(t, 500, WithNoise(false))
	require.NoError(t, m.Initialize(InitOptions{Warmup: intPtr(366)}))
	require.Equal(t, StateInitialized, m.State())

	require.NoError(t, m.SetParameter("recharge_a", Override{Initial: floatPtr(50)}))
	assert.Equal(t, StateUninitialized, m.State())
	assert.Nil(t, m.session)
}
