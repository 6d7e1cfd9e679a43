package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pastas/internal/config"
	"github.com/roach88/pastas/internal/model"
)

var configModel = filepath.Join("..", "config", "testdata", "model.yaml")

// linearModel only varies the constant, so any solver converges on it.
const linearModel = `name: linear
oseries:
  start: "2000-01-11"
  values: [10.1, 10.3, 10.2, 10.6, 10.4, 10.5, 10.9, 10.7, 10.8, 11.0]
stressmodels:
  - name: prec
    kind: StressModel
    rfunc:
      kind: Exponential
    stress:
      start: "2000-01-01"
      preset: prec
      values: [0.0, 2.1, 0.0, 0.0, 5.3, 1.2, 0.0, 0.0, 0.0, 3.4,
               0.0, 0.8, 0.0, 0.0, 0.0, 6.1, 0.0, 0.0, 1.1, 0.0]
noise: false
warmup: 5
parameters:
  prec_A:
    vary: false
  prec_a:
    vary: false
`

// writeModel writes a definition into a fresh directory and returns its path.
func writeModel(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func execValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateModelFile(t *testing.T) {
	out, err := execValidate(t, "text", configModel)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Model well-12 valid")
	assert.Contains(t, out, "117 observations")
	assert.Contains(t, out, "RechargeModel/Exponential")
	assert.Contains(t, out, "recharge_a")
}

func TestValidateModelFileJSON(t *testing.T) {
	out, err := execValidate(t, "json", configModel)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Model)
	assert.Equal(t, "well-12", resp.Data.Model.Name)
	assert.Equal(t, 100, resp.Data.Model.Warmup)

	var names []string
	for _, c := range resp.Data.Model.Components {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"recharge", "constant"}, names)
}

func TestValidateInlineModel(t *testing.T) {
	path := writeModel(t, "linear.yaml", linearModel)

	out, err := execValidate(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model linear valid")
	assert.Contains(t, out, "StressModel/Exponential (2)")
	assert.Contains(t, out, "warmup      5")
}

func TestValidateNonExistentFile(t *testing.T) {
	out, err := execValidate(t, "text", "/nonexistent/model.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E002")
}

func TestValidateParseError(t *testing.T) {
	out, err := execValidate(t, "text", filepath.Join("..", "config", "testdata", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E003")
	assert.Contains(t, out, "solver")
}

func TestValidateCUEPosition(t *testing.T) {
	out, err := execValidate(t, "json", filepath.Join("..", "config", "testdata", "bad_kind.cue"))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParseFailed, resp.Error.Code)
	assert.Regexp(t, `\.cue:\d+:\d+: E003`, resp.Error.Message)
}

func TestValidateValidationErrors(t *testing.T) {
	path := writeModel(t, "bad.yaml", `oseries:
  start: "2000-01-01"
stressmodels:
  - {name: r, kind: StressModel, rfunc: {kind: One}, stress: {values: [1, 2]}}
  - {name: r, kind: StressModel, rfunc: {kind: One}, stress: {values: [1, 2]}}
`)

	out, err := execValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, config.ErrCodeSeriesSource)
	assert.Contains(t, out, config.ErrCodeDuplicateName)
}

func TestValidateValidationErrorsJSON(t *testing.T) {
	path := writeModel(t, "bad.yaml", `oseries:
  start: "2000-01-01"
`)

	out, err := execValidate(t, "json", path)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidateUnsupportedExtension(t *testing.T) {
	path := writeModel(t, "model.toml", "name = 'x'")

	out, err := execValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBuildFailed)
}

func TestClassifyLoadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"missing file", fmt.Errorf("read model file: %w", os.ErrNotExist), ErrCodeNotFound},
		{"parse", &config.LoadError{Message: "parse yaml: bad"}, ErrCodeParseFailed},
		{"validation", config.ValidationErrors{{Field: "oseries", Message: "m", Code: config.ErrCodeSeriesSource}}, config.ErrCodeSeriesSource},
		{"model", fmt.Errorf("build: %w", &model.Error{Code: model.ErrCodeInvalidState, Message: "unknown parameter"}), ErrCodeInvalidState},
		{"other", errors.New("boom"), ErrCodeBuildFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := classifyLoadError(tt.err)
			assert.Equal(t, tt.code, le.Code)
		})
	}
}

func TestClassifyLoadError_Details(t *testing.T) {
	verrs := config.ValidationErrors{
		{Field: "oseries", Message: "need file or values", Code: config.ErrCodeSeriesSource},
		{Field: "stressmodels[1].name", Message: "duplicate", Code: config.ErrCodeDuplicateName},
	}
	le := classifyLoadError(verrs)
	assert.Len(t, le.Details, 2)
	assert.Equal(t, "E205: "+verrs.Error(), le.Error())
}

func TestModelErrorCode(t *testing.T) {
	err := fmt.Errorf("solve: %w", &model.Error{Code: model.ErrCodeConfiguration, Message: "bad"})
	assert.Equal(t, ErrCodeConfiguration, modelErrorCode(err, ErrCodeGeneric))
	assert.Equal(t, ErrCodeGeneric, modelErrorCode(errors.New("x"), ErrCodeGeneric))
}
