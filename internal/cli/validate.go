package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pastas/internal/config"
	"github.com/roach88/pastas/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Model  *ModelSummary            `json:"model,omitempty"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// ModelSummary describes the structure of a built model.
type ModelSummary struct {
	Name       string             `json:"name"`
	Observed   string             `json:"oseries"`
	NObs       int                `json:"nobs"`
	Freq       string             `json:"freq"`
	Warmup     int                `json:"warmup"`
	Components []ComponentSummary `json:"components"`
	Parameters []model.Row        `json:"parameters"`
}

// ComponentSummary names one component and its kind.
type ComponentSummary struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	NParam int    `json:"nparam"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-file>",
		Short: "Validate a model definition",
		Long: `Validate a model definition (YAML or CUE) and build the model.

Checks the definition against its schema, reads every series and assembles
the components without calibrating. Prints the resulting components and
parameters.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadModel(path)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && len(le.Details) > 0 {
			return outputValidationErrors(formatter, le.Details)
		}
		return failLoad(formatter, err)
	}

	summary := Summarize(loaded.Model)
	formatter.VerboseLog("Loaded %s: %d component(s), %d parameter(s)", path, len(summary.Components), len(summary.Parameters))
	return outputValidateSuccess(formatter, loaded.Model, summary)
}

// Summarize describes the structure of m.
func Summarize(m *model.Model) *ModelSummary {
	obs := m.Observed()
	s := &ModelSummary{
		Name:       m.Name(),
		Observed:   obs.Name,
		NObs:       obs.Len(),
		Freq:       string(m.Settings().Freq),
		Warmup:     m.Settings().Warmup,
		Components: []ComponentSummary{},
		Parameters: m.Registry().Rows(),
	}
	for _, c := range m.Contributors() {
		s.Components = append(s.Components, ComponentSummary{
			Name:   c.Name(),
			Kind:   c.Dump().Kind + "/" + c.RFunc().Kind(),
			NParam: c.NParam(),
		})
	}
	if c := m.Constant(); c != nil {
		s.Components = append(s.Components, ComponentSummary{Name: c.Name(), Kind: "Constant", NParam: c.NParam()})
	}
	if t := m.Transform(); t != nil {
		s.Components = append(s.Components, ComponentSummary{Name: t.Name(), Kind: "ThresholdTransform", NParam: t.NParam()})
	}
	if n := m.NoiseModel(); n != nil {
		s.Components = append(s.Components, ComponentSummary{Name: n.Name(), Kind: "NoiseModel", NParam: n.NParam()})
	}
	return s
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, m *model.Model, summary *ModelSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Model: summary})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Model %s valid\n\n", summary.Name)
	fmt.Fprintf(w, "oseries     %s (%d observations)\n", summary.Observed, summary.NObs)
	fmt.Fprintf(w, "freq        %s\n", summary.Freq)
	fmt.Fprintf(w, "warmup      %d\n\n", summary.Warmup)
	for _, c := range summary.Components {
		fmt.Fprintf(w, "  %-16s %s (%d)\n", c.Name, c.Kind, c.NParam)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, m.Registry().Table())
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []config.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
