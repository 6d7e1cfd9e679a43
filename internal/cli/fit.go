package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/solver"
	"github.com/roach88/pastas/internal/store"
)

// FitOptions holds flags for the fit command.
type FitOptions struct {
	*RootOptions
	sessionFlags
	Solver   string
	Database string
	Metrics  bool
	Workers  int

	// IDGenerator allows overriding the fit id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator model.IDGenerator
}

// FitOutput is the JSON payload of the fit command.
type FitOutput struct {
	Fit        *model.FitResult `json:"fit"`
	Parameters []model.Row      `json:"parameters"`
	ModelHash  string           `json:"model_hash,omitempty"`
	Metrics    string           `json:"metrics,omitempty"`
}

// NewFitCommand creates the fit command.
func NewFitCommand(rootOpts *RootOptions) *cobra.Command {
	return newFitCommand(&FitOptions{RootOptions: rootOpts})
}

func newFitCommand(opts *FitOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit <model-file>",
		Short: "Calibrate a model",
		Long: `Calibrate a model and print its fit report.

Flags override the fit section of the definition, which overrides the
PASTAS_SOLVER, PASTAS_DB and PASTAS_WORKERS environment variables.
With --db the model and the fit are stored in a SQLite database (created
if it doesn't exist).

Exit codes:
  0 - Fit converged
  1 - Invalid model or the solver did not converge
  2 - Command error (unreadable file, database error, etc.)

Example:
  pastas fit well.yaml --solver nelder_mead --tmin 2005-01-01
  pastas fit well.yaml --db ./fits.db --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Solver, "solver", "", fmt.Sprintf("solver %v", solver.Names()))
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print solver metrics")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent objective evaluations (0 = number of CPUs)")

	return cmd
}

func runFit(opts *FitOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var modelOpts []model.Option
	if opts.IDGenerator != nil {
		modelOpts = append(modelOpts, model.WithIDGenerator(opts.IDGenerator))
	}
	loaded, err := LoadModel(path, modelOpts...)
	if err != nil {
		return failLoad(formatter, err)
	}
	m := loaded.Model

	solveOpts, err := loaded.File.SolveOptions()
	if err != nil {
		_ = formatter.Error(ErrCodeBuildFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid fit settings", err)
	}
	if err := opts.apply(cmd, &solveOpts.InitOptions); err != nil {
		_ = formatter.Error(ErrCodeConfiguration, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	solveOpts.Workers = opts.Env.Workers
	if cmd.Flags().Changed("workers") {
		solveOpts.Workers = opts.Workers
	}

	name := firstNonEmpty(opts.Solver, loaded.File.Fit.Solver, opts.Env.Solver)
	slv, err := solver.New(name)
	if err != nil {
		_ = formatter.Error(ErrCodeConfiguration, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid solver", err)
	}

	var registry *prometheus.Registry
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		slv = solver.Instrument(slv, solver.NewMetrics(registry))
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping solver", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("solving model", "model", m.Name(), "solver", slv.Name(), "file", path)
	fit, err := m.Solve(ctx, slv, solveOpts)
	if err != nil {
		_ = formatter.Error(modelErrorCode(err, ErrCodeSolveFailed), err.Error(), nil)
		if model.IsConfigurationError(err) || model.IsInvalidStateError(err) {
			return WrapExitError(ExitFailure, "invalid calibration settings", err)
		}
		return WrapExitError(ExitCommandError, "solve failed", err)
	}
	slog.Info("model solved", "fit_id", fit.ID, "success", fit.Success, "nfev", fit.Nfev)

	out := FitOutput{Fit: fit, Parameters: m.Registry().Rows()}

	dbPath := firstNonEmpty(opts.Database, opts.Env.DB)
	if dbPath != "" {
		hash, err := storeFit(ctx, dbPath, m, fit)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store fit", err)
		}
		out.ModelHash = hash
		slog.Info("fit stored", "db", dbPath, "model_hash", hash, "fit_id", fit.ID)
	}

	if registry != nil {
		text, err := gatherMetrics(registry)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
		out.Metrics = text
	}

	if err := outputFit(formatter, m, out); err != nil {
		return err
	}
	if !fit.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: solver did not converge: %s", ErrCodeNotConverged, fit.Message))
	}
	return nil
}

// storeFit writes the model and the fit to the database at path.
func storeFit(ctx context.Context, path string, m *model.Model, fit *model.FitResult) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	hash, err := st.WriteModel(ctx, m.Dump())
	if err != nil {
		return "", err
	}
	if err := st.WriteFit(ctx, hash, fit, m.Registry().Rows()); err != nil {
		return "", err
	}
	return hash, nil
}

// gatherMetrics renders the collected metrics in the Prometheus text format.
func gatherMetrics(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func outputFit(formatter *OutputFormatter, m *model.Model, out FitOutput) error {
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	report, err := m.Report()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build report", err)
	}
	w := formatter.Writer
	fmt.Fprint(w, report)
	fmt.Fprintf(w, "\nfit id      %s\n", out.Fit.ID)
	if out.ModelHash != "" {
		fmt.Fprintf(w, "model hash  %s\n", out.ModelHash)
	}
	if out.Metrics != "" {
		fmt.Fprintf(w, "\n%s", out.Metrics)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
