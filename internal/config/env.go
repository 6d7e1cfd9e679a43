package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes the environment variables read by LoadEnv.
const EnvPrefix = "PASTAS"

// Env holds defaults read from the environment. Command line flags take
// precedence.
type Env struct {
	DB       string `envconfig:"DB"`
	Solver   string `envconfig:"SOLVER" default:"least_squares" validate:"oneof=least_squares nelder_mead"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Workers  int    `envconfig:"WORKERS" default:"0" validate:"gte=0"`
}

// LoadEnv reads PASTAS_DB, PASTAS_SOLVER, PASTAS_LOG_LEVEL and
// PASTAS_WORKERS.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return Env{}, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := validate.Struct(e); err != nil {
		return Env{}, fmt.Errorf("config validation failed: %w", err)
	}
	return e, nil
}

// Level returns the slog level named by LogLevel.
func (e Env) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
