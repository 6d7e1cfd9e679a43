package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes keys for the duration of the test. Set but empty
// variables would shadow the defaults.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadEnv_Defaults(t *testing.T) {
	unsetEnv(t, "PASTAS_DB", "PASTAS_SOLVER", "PASTAS_LOG_LEVEL", "PASTAS_WORKERS")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "", e.DB)
	assert.Equal(t, "least_squares", e.Solver)
	assert.Equal(t, slog.LevelInfo, e.Level())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("PASTAS_DB", "/tmp/fits.db")
	t.Setenv("PASTAS_SOLVER", "nelder_mead")
	t.Setenv("PASTAS_LOG_LEVEL", "debug")
	t.Setenv("PASTAS_WORKERS", "4")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fits.db", e.DB)
	assert.Equal(t, "nelder_mead", e.Solver)
	assert.Equal(t, slog.LevelDebug, e.Level())
	assert.Equal(t, 4, e.Workers)
}

func TestLoadEnv_Invalid(t *testing.T) {
	unsetEnv(t, "PASTAS_LOG_LEVEL", "PASTAS_WORKERS")
	t.Setenv("PASTAS_SOLVER", "bfgs")
	_, err := LoadEnv()
	assert.Error(t, err)

	unsetEnv(t, "PASTAS_SOLVER")
	t.Setenv("PASTAS_WORKERS", "many")
	_, err = LoadEnv()
	assert.Error(t, err)
}
