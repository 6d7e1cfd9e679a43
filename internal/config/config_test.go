package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/solver"
	"github.com/roach88/pastas/internal/timeseries"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"m.yaml", FormatYAML},
		{"m.YML", FormatYAML},
		{"m.cue", FormatCUE},
		{"m.json", FormatCUE},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
	_, err := FormatOf("m.toml")
	assert.Error(t, err)
}

func TestLoadFile_YAMLAndCUEAgree(t *testing.T) {
	y, err := LoadFile(filepath.Join("testdata", "model.yaml"))
	require.NoError(t, err)
	c, err := LoadFile(filepath.Join("testdata", "model.cue"))
	require.NoError(t, err)

	assert.Equal(t, "testdata", y.Dir())
	assert.Equal(t, y, c)

	assert.Equal(t, "well-12", y.Name)
	require.Len(t, y.StressModels, 1)
	assert.Equal(t, "RechargeModel", y.StressModels[0].Kind)
	assert.Equal(t, "Exponential", y.StressModels[0].RFunc.Kind)
	require.NotNil(t, y.Warmup)
	assert.Equal(t, 100, *y.Warmup)
	assert.Equal(t, 40.0, *y.Parameters["recharge_a"].Initial)
	assert.Equal(t, solver.NameNelderMead, y.Fit.Solver)
}

func TestParse_YAMLUnknownField(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "unknown_field.yaml"))
	var le *LoadError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Contains(t, le.Message, "solver")
}

func TestParse_YAMLEmpty(t *testing.T) {
	_, err := Parse(nil, FormatYAML, "empty.yaml")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "empty model file", le.Message)
}

func TestParse_CUESchemaViolation(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "bad_kind.cue"))
	var le *LoadError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.True(t, le.Pos.IsValid(), "expected a source position")
}

func TestParse_CUEClosedSchema(t *testing.T) {
	src := []byte(`
oseries: {start: "2000-01-01", values: [1, 2, 3]}
colour: "red"
`)
	_, err := Parse(src, FormatCUE, "closed.cue")
	var le *LoadError
	assert.True(t, errors.As(err, &le), "got %v", err)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		code  string
	}{
		{
			name:  "series without source",
			src:   "oseries: {}",
			field: "oseries",
			code:  ErrCodeSeriesSource,
		},
		{
			name:  "file and values",
			src:   "oseries: {file: h.csv, start: '2000-01-01', values: [1]}",
			field: "oseries",
			code:  ErrCodeSeriesSource,
		},
		{
			name:  "values without start",
			src:   "oseries: {values: [1, 2]}",
			field: "oseries",
			code:  ErrCodeSeriesSource,
		},
		{
			name:  "bad timestamp",
			src:   "oseries: {start: yesterday, values: [1]}",
			field: "oseries.start",
			code:  ErrCodeInvalidTime,
		},
		{
			name:  "bad frequency",
			src:   "oseries: {file: h.csv}\nfreq: fortnightly",
			field: "freq",
			code:  ErrCodeInvalidFreq,
		},
		{
			name:  "negative warmup",
			src:   "oseries: {file: h.csv}\nwarmup: -1",
			field: "warmup",
			code:  ErrCodeInvalidValue,
		},
		{
			name:  "unknown preset",
			src:   "oseries: {file: h.csv, preset: river}",
			field: "oseries.preset",
			code:  ErrCodeInvalidValue,
		},
		{
			name:  "unknown solver",
			src:   "oseries: {file: h.csv}\nfit: {solver: bfgs}",
			field: "fit.solver",
			code:  ErrCodeInvalidValue,
		},
		{
			name:  "missing rfunc kind",
			src:   "oseries: {file: h.csv}\nstressmodels: [{name: r, kind: StressModel, stress: {file: p.csv}}]",
			field: "stressmodels[0].rfunc.kind",
			code:  ErrCodeRequired,
		},
		{
			name:  "recharge without evap",
			src:   "oseries: {file: h.csv}\nstressmodels: [{name: r, kind: RechargeModel, rfunc: {kind: Gamma}, prec: {file: p.csv}}]",
			field: "stressmodels[0].evap",
			code:  ErrCodeStressKind,
		},
		{
			name:  "stress model with prec",
			src:   "oseries: {file: h.csv}\nstressmodels: [{name: r, kind: StressModel, rfunc: {kind: One}, stress: {file: p.csv}, prec: {file: p.csv}}]",
			field: "stressmodels[0].kind",
			code:  ErrCodeStressKind,
		},
		{
			name: "duplicate names",
			src: `oseries: {file: h.csv}
stressmodels:
  - {name: r, kind: StressModel, rfunc: {kind: One}, stress: {file: p.csv}}
  - {name: r, kind: StressModel, rfunc: {kind: One}, stress: {file: e.csv}}`,
			field: "stressmodels[1].name",
			code:  ErrCodeDuplicateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), FormatYAML, "test.yaml")
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)

			found := false
			for _, ve := range verrs {
				if ve.Field == tt.field && ve.Code == tt.code {
					found = true
				}
			}
			assert.True(t, found, "no %s error on %s in %v", tt.code, tt.field, verrs)
		})
	}
}

func TestBuild_FromFile(t *testing.T) {
	f, err := LoadFile(filepath.Join("testdata", "model.yaml"))
	require.NoError(t, err)

	rec := model.NewRecorder()
	m, err := Build(f, model.WithSink(rec))
	require.NoError(t, err)

	assert.Equal(t, "well-12", m.Name())
	assert.Equal(t, map[string]string{"location": "field site"}, m.Metadata())
	assert.Equal(t, 100, m.Settings().Warmup)
	assert.Nil(t, m.NoiseModel())
	assert.Equal(t, []string{"recharge_A", "recharge_a", "recharge_f", "constant_d"}, m.Registry().Names())

	row, _ := m.Registry().Row("recharge_a")
	assert.Equal(t, 40.0, row.Initial)
	row, _ = m.Registry().Row("constant_d")
	assert.False(t, row.Vary)

	assert.Equal(t, 117, m.Observed().Len())
}

func TestBuild_Inline(t *testing.T) {
	src := []byte(`
name: inline
oseries:
  start: "2000-01-01"
  values: [1.0, 1.2, .nan, 1.1, 1.3]
stressmodels:
  - name: pump
    kind: StressModel
    rfunc: {kind: Gamma, up: false}
    stress:
      start: "1999-12-01"
      preset: well
      values: [2, 2, 2, 2, 2, 2, 2, 2, 2, 2]
      freq: 4D
transform:
  kind: ThresholdTransform
noise: true
freq: D
`)
	f, err := Parse(src, FormatYAML, "inline.yaml")
	require.NoError(t, err)

	m, err := Build(f, model.WithSink(model.NewRecorder()))
	require.NoError(t, err)

	assert.Equal(t, 4, m.Observed().Len(), "NaN observation is dropped by the oseries preset")
	assert.Equal(t, timeseries.Daily, m.Settings().Freq)
	assert.Equal(t, []string{
		"pump_A", "pump_n", "pump_a", "constant_d", TransformName + "_1", TransformName + "_2", "noise_alpha",
	}, m.Registry().Names())

	c, ok := m.Contributor("pump")
	require.True(t, ok)
	st := c.Stresses()[0]
	assert.Equal(t, timeseries.Freq("4D"), st.FreqOriginal())
	assert.Equal(t, timeseries.FillZero, st.Settings().FillBefore)
}

func TestBuild_UnknownParameter(t *testing.T) {
	src := []byte(`
oseries: {start: "2000-01-01", values: [1, 2, 3]}
parameters:
  nope_A: {initial: 1}
`)
	f, err := Parse(src, FormatYAML, "p.yaml")
	require.NoError(t, err)

	_, err = Build(f, model.WithSink(model.NewRecorder()))
	assert.True(t, model.IsInvalidStateError(err))
}

func TestBuild_MissingSeriesFile(t *testing.T) {
	f, err := Parse([]byte("oseries: {file: missing.csv}"), FormatYAML, "m.yaml")
	require.NoError(t, err)

	_, err = Build(f)
	assert.Error(t, err)
}

func TestSolveOptions(t *testing.T) {
	src := []byte(`
oseries: {start: "2000-01-01", values: [1, 2, 3]}
fit:
  tmin: "2000-01-02"
  tmax: "2000-01-03T12:00:00Z"
  noise: "on"
  weights:
    start: "2000-01-01"
    values: [0.5, 1, 2]
`)
	f, err := Parse(src, FormatYAML, "fit.yaml")
	require.NoError(t, err)

	opts, err := f.SolveOptions()
	require.NoError(t, err)
	assert.Equal(t, "2000-01-02T00:00:00Z", opts.Tmin.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, 12, opts.Tmax.Hour())
	assert.Equal(t, model.NoiseOn, opts.Noise)
	require.NotNil(t, opts.Weights)
	assert.Equal(t, []float64{0.5, 1, 2}, opts.Weights.Values)
	assert.Equal(t, "weights", opts.Weights.Name)
}

func TestSolveOptions_Defaults(t *testing.T) {
	f := &File{}
	opts, err := f.SolveOptions()
	require.NoError(t, err)
	assert.True(t, opts.Tmin.IsZero())
	assert.Equal(t, model.NoiseAuto, opts.Noise)
	assert.Nil(t, opts.Weights)
}

func TestBoolOr(t *testing.T) {
	off := false
	assert.True(t, boolOr(nil, true))
	assert.False(t, boolOr(&off, true))
}
