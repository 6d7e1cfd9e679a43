package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCSV(t *testing.T) {
	path := writeModel(t, "linear.yaml", linearModel)

	out, err := execCommand(t, NewSimulateCommand, "text", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 16, "header plus 5 warmup days and 10 observed days")
	assert.True(t, strings.HasPrefix(lines[0], "time,simulation,"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2000-01-06T00:00:00Z,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[15], "2000-01-20T00:00:00Z,"), lines[15])
}

func TestSimulatePeriodFlags(t *testing.T) {
	path := writeModel(t, "linear.yaml", linearModel)

	out, err := execCommand(t, NewSimulateCommand, "text", path,
		"--tmin", "2000-01-13", "--tmax", "2000-01-18", "--warmup", "0", "--contributions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasSuffix(lines[0], ",prec"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2000-01-13T00:00:00Z,"), lines[1])
}

func TestSimulateInvalidNoise(t *testing.T) {
	path := writeModel(t, "linear.yaml", linearModel)

	_, err := execCommand(t, NewSimulateCommand, "text", path, "--noise", "maybe")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulateInvalidPeriod(t *testing.T) {
	path := writeModel(t, "linear.yaml", linearModel)

	out, err := execCommand(t, NewSimulateCommand, "text", path, "--tmin", "2000-01-18", "--tmax", "2000-01-12")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeConfiguration)
}
