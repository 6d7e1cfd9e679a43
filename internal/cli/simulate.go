package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/timeseries"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	sessionFlags
	Contributions bool
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <model-file>",
		Short: "Simulate a model with its initial parameters",
		Long: `Simulate a model over its calibration period, warmup included, and
print the result as CSV with the observations alongside.

Parameter values come from the definition: initial values, or the values
set under parameters. Output is CSV in every format.

Example:
  pastas simulate well.yaml --tmin 2010-01-01 --contributions`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.Contributions, "contributions", false, "add a column per stress model")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadModel(path)
	if err != nil {
		return failLoad(formatter, err)
	}
	m := loaded.Model

	var init model.InitOptions
	if err := opts.apply(cmd, &init); err != nil {
		_ = formatter.Error(ErrCodeConfiguration, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if err := m.Initialize(init); err != nil {
		_ = formatter.Error(modelErrorCode(err, ErrCodeGeneric), err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to initialize model", err)
	}

	sim, err := m.SimulatePeriod(nil, init.Tmin, init.Tmax, init.Freq)
	if err != nil {
		_ = formatter.Error(modelErrorCode(err, ErrCodeGeneric), err.Error(), nil)
		return WrapExitError(ExitFailure, "simulation failed", err)
	}
	sim.Name = "simulation"

	columns := []timeseries.Series{sim, m.Observed()}
	if opts.Contributions {
		for _, c := range m.Contributors() {
			contrib, err := m.Contribution(c.Name(), sim.Tmin(), sim.Tmax())
			if err != nil {
				_ = formatter.Error(modelErrorCode(err, ErrCodeGeneric), err.Error(), nil)
				return WrapExitError(ExitFailure, "contribution failed", err)
			}
			contrib.Name = c.Name()
			columns = append(columns, contrib)
		}
	}

	formatter.VerboseLog("Simulated %d steps from %s to %s", sim.Len(), sim.Tmin(), sim.Tmax())
	if err := timeseries.WriteCSV(formatter.Writer, columns...); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
