package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/pastas/internal/solver"
	"github.com/roach88/pastas/internal/timeseries"
)

// SessionState is the calibration state of a model.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateInitialized
	StateSolving
	StateCommitted
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateSolving:
		return "solving"
	case StateCommitted:
		return "committed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// NoiseMode selects whether the noise model takes part in calibration.
type NoiseMode int

const (
	// NoiseAuto uses the noise model when one is attached.
	NoiseAuto NoiseMode = iota
	NoiseOn
	NoiseOff
)

// ParseNoiseMode parses "auto", "on" or "off".
func ParseNoiseMode(s string) (NoiseMode, error) {
	switch s {
	case "", "auto":
		return NoiseAuto, nil
	case "on", "true":
		return NoiseOn, nil
	case "off", "false":
		return NoiseOff, nil
	default:
		return NoiseAuto, configError("unknown noise mode %q (want auto, on or off)", s)
	}
}

// InitOptions control Initialize. Zero values select the defaults.
type InitOptions struct {
	Tmin time.Time
	Tmax time.Time
	// Freq fixes the working frequency.
	Freq timeseries.Freq
	// Warmup overrides the warmup length when non-nil.
	Warmup *int
	Noise  NoiseMode
	// KeepOptimal keeps calibrated values through the registry rebuild.
	KeepOptimal bool
}

// SolveOptions control Solve.
type SolveOptions struct {
	InitOptions
	// Weights multiplies the residuals (or innovations) at matching
	// timestamps. Timestamps without a weight count as 1.
	Weights *timeseries.Series
	// Workers bounds concurrent objective evaluations in the solver.
	Workers int
}

// session is the ephemeral working state of one calibration.
type session struct {
	tmin, tmax  time.Time
	freq        timeseries.Freq
	axis        []time.Time
	dt          float64
	calib       timeseries.Series
	interpolate bool
	odelt       timeseries.Series
	noise       bool
}

// SessionInfo describes an open calibration session.
type SessionInfo struct {
	Tmin        time.Time       `json:"tmin"`
	Tmax        time.Time       `json:"tmax"`
	Freq        timeseries.Freq `json:"freq"`
	AxisStart   time.Time       `json:"axis_start"`
	AxisEnd     time.Time       `json:"axis_end"`
	AxisLen     int             `json:"axis_len"`
	NObs        int             `json:"nobs"`
	Interpolate bool            `json:"interpolate"`
	Noise       bool            `json:"noise"`
}

// Session describes the open session. ok is false when the model is not
// initialized.
func (m *Model) Session() (info SessionInfo, ok bool) {
	s := m.session
	if s == nil {
		return SessionInfo{}, false
	}
	return SessionInfo{
		Tmin:        s.tmin,
		Tmax:        s.tmax,
		Freq:        s.freq,
		AxisStart:   s.axis[0],
		AxisEnd:     s.axis[len(s.axis)-1],
		AxisLen:     len(s.axis),
		NObs:        s.calib.Len(),
		Interpolate: s.interpolate,
		Noise:       s.noise,
	}, true
}

// FitResult is the immutable outcome of one committed solve.
type FitResult struct {
	ID      string          `json:"id"`
	Solver  string          `json:"solver"`
	Names   []string        `json:"names"`
	Initial []float64       `json:"initial"`
	Optimal []float64       `json:"optimal"`
	Stderr  []float64       `json:"stderr"`
	Nfev    int             `json:"nfev"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Cost    float64         `json:"cost"`
	Tmin    time.Time       `json:"tmin"`
	Tmax    time.Time       `json:"tmax"`
	Freq    timeseries.Freq `json:"freq"`
	Warmup  int             `json:"warmup"`
	Noise   bool            `json:"noise"`
	NObs    int             `json:"nobs"`
	Created time.Time       `json:"created"`
}

// Initialize prepares a calibration session: it resolves noise usage, the
// frequency and warmup, the time bounds, the simulation axis and the
// calibration set, resamples the stresses onto the axis and rebuilds the
// registry. Calibrated values survive the rebuild only with KeepOptimal.
func (m *Model) Initialize(opts InitOptions) error {
	if err := m.guard("Initialize"); err != nil {
		return err
	}

	noise := m.noise != nil
	switch opts.Noise {
	case NoiseOn:
		if m.noise == nil {
			m.notify(slog.LevelError, NoticeNoiseUnavailable,
				"solving with a noise model while none is attached; no noise model is used")
			noise = false
		}
	case NoiseOff:
		noise = false
	}

	freq := m.settings.Freq
	if !opts.Freq.IsZero() {
		if err := opts.Freq.Validate(); err != nil {
			return configError("%v", err)
		}
		freq = opts.Freq
	}
	offset, err := ResolveTimeOffset(freq, m.contributors)
	if err != nil {
		return err
	}
	warmup := m.settings.Warmup
	if opts.Warmup != nil {
		if *opts.Warmup < 0 {
			return configError("warmup must not be negative, got %d", *opts.Warmup)
		}
		warmup = *opts.Warmup
	}
	dt, err := freq.Days()
	if err != nil {
		return configError("%v", err)
	}

	// Bounds are aligned with the offset of the frequency being set up.
	prevOffset := m.settings.TimeOffset
	m.settings.TimeOffset = offset
	tmin, tmax, err := m.ResolveBounds(opts.Tmin, opts.Tmax, freq, true, true)
	if err != nil {
		m.settings.TimeOffset = prevOffset
		return err
	}
	axis, err := BuildSimulationAxis(tmin, tmax, freq, warmup)
	if err != nil {
		m.settings.TimeOffset = prevOffset
		return err
	}
	for _, c := range m.contributors {
		if err := c.UpdateStress(freq, axis[0], axis[len(axis)-1]); err != nil {
			m.settings.TimeOffset = prevOffset
			return configError("%v", err)
		}
	}

	obs := m.observed.Series()
	calib := BuildCalibrationSet(obs, tmin, tmax, axis)
	s := &session{
		tmin:        tmin,
		tmax:        tmax,
		freq:        freq,
		axis:        axis,
		dt:          dt,
		calib:       calib,
		interpolate: needsInterpolation(calib.Index, axis),
		odelt:       obs.Deltas(),
		noise:       noise,
	}
	if s.interpolate {
		m.notify(slog.LevelInfo, NoticeInterpolation,
			"there are observations between the simulation time steps; linear interpolation is used",
			slog.Int("nobs", calib.Len()))
	}

	m.settings.Freq = freq
	if !opts.Freq.IsZero() {
		m.freqAuto = false
	}
	m.settings.Warmup = warmup
	m.settings.Tmin, m.settings.Tmax = tmin, tmax
	m.settings.Noise = noise
	if err := m.rebuild(opts.KeepOptimal); err != nil {
		return err
	}
	m.session = s
	m.state = StateInitialized
	return nil
}

// Solve initializes a session and calibrates the model with slv (nil
// selects least squares). The objective is the residuals, or the
// innovations when noise is active, multiplied by the weights. A solve
// that does not converge still commits its values and emits a
// SOLVER_NOT_CONVERGED notice; the caller inspects FitResult.Success. A
// solver error discards the session.
func (m *Model) Solve(ctx context.Context, slv solver.Solver, opts SolveOptions) (*FitResult, error) {
	if slv == nil {
		slv = &solver.LeastSquares{Logger: m.logger}
	}
	if err := m.Initialize(opts.InitOptions); err != nil {
		return nil, err
	}
	s := m.session
	reg := m.registry

	initial := reg.Initial()
	if opts.KeepOptimal {
		for i, v := range reg.Optimal() {
			if reg.rows[i].HasOptimal() {
				initial[i] = v
			}
		}
	}

	var weights []float64
	if opts.Weights != nil {
		weights = opts.Weights.Lookup(s.calib.Index, 1)
	}
	objective := func(p []float64) ([]float64, error) {
		var (
			r   timeseries.Series
			err error
		)
		if s.noise {
			r, err = m.innovations(p, s.tmin, s.tmax, s.freq)
		} else {
			r, err = m.residuals(p, s.tmin, s.tmax, s.freq)
		}
		if err != nil {
			return nil, err
		}
		if weights != nil {
			for i := range r.Values {
				r.Values[i] *= weights[i]
			}
		}
		return r.Values, nil
	}

	problem := solver.Problem{
		Names:     reg.Names(),
		Initial:   initial,
		Lower:     reg.PMin(),
		Upper:     reg.PMax(),
		Vary:      reg.Vary(),
		Objective: objective,
		Workers:   opts.Workers,
	}

	m.state = StateSolving
	m.logger.DebugContext(ctx, "solving model",
		slog.String("model", m.name),
		slog.String("solver", slv.Name()),
		slog.Int("nparam", reg.Len()),
		slog.Int("nobs", s.calib.Len()),
		slog.Bool("noise", s.noise))
	res, err := slv.Solve(ctx, problem)
	if err != nil {
		m.session = nil
		m.state = StateUninitialized
		return nil, fmt.Errorf("solve %s: %w", m.name, err)
	}
	if !res.Success {
		m.notify(slog.LevelWarn, NoticeSolverNotConverged,
			"solver did not converge; committing its last values",
			slog.String("solver", slv.Name()),
			slog.String("message", res.Message))
	}

	fit := &FitResult{
		ID:      m.ids.Generate(),
		Solver:  slv.Name(),
		Names:   reg.Names(),
		Initial: initial,
		Optimal: res.Optimal,
		Stderr:  res.Stderr,
		Nfev:    res.Nfev,
		Success: res.Success,
		Message: res.Message,
		Cost:    res.Cost,
		Tmin:    s.tmin,
		Tmax:    s.tmax,
		Freq:    s.freq,
		Warmup:  m.settings.Warmup,
		Noise:   s.noise,
		NObs:    s.calib.Len(),
		Created: m.now().UTC(),
	}
	m.registry = reg.withFit(res.Optimal, res.Stderr)
	m.fit = fit
	m.settings.Solver = slv.Name()
	m.session = nil
	m.state = StateCommitted
	m.touch()
	m.logger.DebugContext(ctx, "model solved",
		slog.String("model", m.name),
		slog.String("fit_id", fit.ID),
		slog.Int("nfev", fit.Nfev),
		slog.Bool("success", fit.Success))
	return fit, nil
}
