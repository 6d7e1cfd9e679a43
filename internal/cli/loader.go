package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"cuelang.org/go/cue/token"

	"github.com/roach88/pastas/internal/config"
	"github.com/roach88/pastas/internal/model"
)

// LoadError is a failure to load or build a model, with its CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos                // CUE position if available
	Details []config.ValidationError // Every validation problem, if any
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadedModel is a parsed definition together with the model built from it.
type LoadedModel struct {
	Path  string
	File  *config.File
	Model *model.Model
}

// LoadModel reads the definition at path and builds the model. Notices are
// logged through the default logger. Errors are *LoadError.
func LoadModel(path string, opts ...model.Option) (*LoadedModel, error) {
	f, err := config.LoadFile(path)
	if err != nil {
		return nil, classifyLoadError(err)
	}

	logger := slog.Default()
	base := []model.Option{
		model.WithLogger(logger),
		model.WithSink(model.LogSink{Logger: logger}),
	}
	m, err := config.Build(f, append(base, opts...)...)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	return &LoadedModel{Path: path, File: f, Model: m}, nil
}

// classifyLoadError maps a load or build error to its CLI error code.
func classifyLoadError(err error) *LoadError {
	var (
		loadErr  *config.LoadError
		verrs    config.ValidationErrors
		modelErr *model.Error
	)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.As(err, &loadErr):
		return &LoadError{Code: ErrCodeParseFailed, Message: loadErr.Message, Pos: loadErr.Pos}
	case errors.As(err, &verrs) && len(verrs) > 0:
		return &LoadError{Code: verrs[0].Code, Message: verrs.Error(), Details: verrs}
	case errors.As(err, &modelErr):
		return &LoadError{Code: string(modelErr.Code), Message: modelErr.Message}
	default:
		return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}
}

// modelErrorCode returns the CLI code for an error returned by a model
// operation.
func modelErrorCode(err error, fallback string) string {
	var modelErr *model.Error
	if errors.As(err, &modelErr) {
		return string(modelErr.Code)
	}
	return fallback
}

// failLoad reports a load error and returns the matching exit error.
// Definition problems are failures (exit 1), everything else is a
// command error (exit 2).
func failLoad(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		le = classifyLoadError(err)
	}
	var details interface{}
	if len(le.Details) > 0 {
		details = le.Details
	}
	_ = formatter.Error(le.Code, le.Error(), details)

	switch le.Code {
	case ErrCodeNotFound, ErrCodeGeneric:
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}
	return WrapExitError(ExitFailure, "invalid model", err)
}

// newFormatter builds the formatter for cmd.
func newFormatter(opts *RootOptions, w, errW io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    w,
		ErrWriter: errW, // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}
