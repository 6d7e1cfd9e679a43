package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/store"
)

// StoreOptions holds flags for commands reading the fit database.
type StoreOptions struct {
	*RootOptions
	Database string
}

// FitSummary is one row of the fits listing.
type FitSummary struct {
	ID        string    `json:"id"`
	ModelHash string    `json:"model_hash"`
	Solver    string    `json:"solver"`
	Success   bool      `json:"success"`
	NObs      int       `json:"nobs"`
	Tmin      time.Time `json:"tmin"`
	Tmax      time.Time `json:"tmax"`
	Freq      string    `json:"freq"`
	Created   time.Time `json:"created"`
}

// ShowOutput is the JSON payload of the show command.
type ShowOutput struct {
	ModelHash string           `json:"model_hash"`
	Fit       *model.FitResult `json:"fit"`
}

// NewFitsCommand creates the fits command.
func NewFitsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fits [model-hash]",
		Short: "List stored fits",
		Long: `List the fits stored in a database in the order they were written,
optionally only those of one model.

Example:
  pastas fits --db ./fits.db
  pastas fits --db ./fits.db 3f2a... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := ""
			if len(args) == 1 {
				hash = args[0]
			}
			return runFits(opts, hash, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $PASTAS_DB)")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <fit-id>",
		Short: "Show a stored fit",
		Long: `Show a stored fit with its parameter table.

Example:
  pastas show --db ./fits.db 01912c4e-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $PASTAS_DB)")

	return cmd
}

// openStore opens an existing database named by the flag or PASTAS_DB.
func openStore(opts *StoreOptions, formatter *OutputFormatter) (*store.Store, error) {
	path := firstNonEmpty(opts.Database, opts.Env.DB)
	if path == "" {
		_ = formatter.Error(ErrCodeNotFound, "no database given (use --db or PASTAS_DB)", nil)
		return nil, NewExitError(ExitCommandError, "no database given")
	}
	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func runFits(opts *StoreOptions, modelHash string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := st.ListFits(ctx, modelHash)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list fits", err)
	}

	fits := make([]FitSummary, 0, len(records))
	for _, rec := range records {
		fits = append(fits, FitSummary{
			ID:        rec.Fit.ID,
			ModelHash: rec.ModelHash,
			Solver:    rec.Fit.Solver,
			Success:   rec.Fit.Success,
			NObs:      rec.Fit.NObs,
			Tmin:      rec.Fit.Tmin,
			Tmax:      rec.Fit.Tmax,
			Freq:      string(rec.Fit.Freq),
			Created:   rec.Fit.Created,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(fits)
	}
	if len(fits) == 0 {
		fmt.Fprintln(formatter.Writer, "No fits found.")
		return nil
	}
	w := formatter.Writer
	for _, f := range fits {
		status := "✓"
		if !f.Success {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s  %-13s %s..%s %s  model %.12s\n", status, f.ID, f.Solver,
			f.Tmin.Format(time.DateOnly), f.Tmax.Format(time.DateOnly), f.Freq, f.ModelHash)
	}
	return nil
}

func runShow(opts *StoreOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := st.ReadFit(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "fit not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read fit", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ShowOutput{ModelHash: rec.ModelHash, Fit: &rec.Fit})
	}

	w := formatter.Writer
	f := rec.Fit
	fmt.Fprintf(w, "fit         %s\n", f.ID)
	fmt.Fprintf(w, "model hash  %s\n", rec.ModelHash)
	fmt.Fprintf(w, "solver      %s (nfev %d)\n", f.Solver, f.Nfev)
	fmt.Fprintf(w, "success     %t %s\n", f.Success, f.Message)
	fmt.Fprintf(w, "period      %s .. %s (%s, warmup %d)\n",
		f.Tmin.Format(time.RFC3339), f.Tmax.Format(time.RFC3339), f.Freq, f.Warmup)
	fmt.Fprintf(w, "nobs        %d\n", f.NObs)
	fmt.Fprintf(w, "noise       %t\n\n", f.Noise)
	fmt.Fprintf(w, "%-16s %12s %12s %12s %12s %12s %6s\n",
		"name", "initial", "optimal", "stderr", "pmin", "pmax", "vary")
	for _, p := range rec.Parameters {
		fmt.Fprintf(w, "%-16s %12.6g %12.6g %12.6g %12.6g %12.6g %6t\n",
			p.Name, p.Initial, p.Optimal, p.Stderr, p.PMin, p.PMax, p.Vary)
	}
	return nil
}
