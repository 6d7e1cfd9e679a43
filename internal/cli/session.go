package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/timeseries"
)

// sessionFlags are the calibration period flags shared by simulate and fit.
type sessionFlags struct {
	Tmin   string
	Tmax   string
	Freq   string
	Warmup int
	Noise  string
}

func (f *sessionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Tmin, "tmin", "", "start of the calibration period")
	cmd.Flags().StringVar(&f.Tmax, "tmax", "", "end of the calibration period")
	cmd.Flags().StringVar(&f.Freq, "freq", "", "working frequency, e.g. D, 7D, H")
	cmd.Flags().IntVar(&f.Warmup, "warmup", 0, "warmup length in units of the frequency (default from the model)")
	cmd.Flags().StringVar(&f.Noise, "noise", "", "use the noise model: auto, on or off")
}

// apply overrides opts with the flags set on cmd.
func (f *sessionFlags) apply(cmd *cobra.Command, opts *model.InitOptions) error {
	var err error
	if f.Tmin != "" {
		if opts.Tmin, err = timeseries.ParseTime(f.Tmin); err != nil {
			return fmt.Errorf("--tmin: %w", err)
		}
	}
	if f.Tmax != "" {
		if opts.Tmax, err = timeseries.ParseTime(f.Tmax); err != nil {
			return fmt.Errorf("--tmax: %w", err)
		}
	}
	if f.Freq != "" {
		opts.Freq = timeseries.Freq(f.Freq)
	}
	if cmd.Flags().Changed("warmup") {
		w := f.Warmup
		opts.Warmup = &w
	}
	if f.Noise != "" {
		if opts.Noise, err = model.ParseNoiseMode(f.Noise); err != nil {
			return err
		}
	}
	return nil
}
