package model

import (
	"log/slog"
	"time"

	"github.com/roach88/pastas/internal/noise"
	"github.com/roach88/pastas/internal/param"
	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/timeseries"
	"github.com/roach88/pastas/internal/transform"
)

// Version is recorded in the file info of dumps.
const Version = "0.4.0"

// DefaultWarmup is the default warmup length in base units of the
// frequency (days for "D").
const DefaultWarmup = 3650

// Transform is applied to the summed simulation.
type Transform interface {
	Name() string
	NParam() int
	Parameters() param.Table
	Simulate(h timeseries.Series, p []float64) timeseries.Series
	Dump() transform.Dump
}

// NoiseModel turns residuals into innovations.
type NoiseModel interface {
	Name() string
	NParam() int
	Parameters() param.Table
	Simulate(res timeseries.Series, odelt []float64, p []float64) (timeseries.Series, error)
	Dump() noise.Dump
}

// Settings are the simulation settings of a model.
type Settings struct {
	// Freq is the working frequency. It is resolved from the stresses
	// unless fixed with WithFreq or an explicit Initialize frequency.
	Freq timeseries.Freq
	// Warmup is counted in base units of Freq.
	Warmup int
	// Tmin and Tmax are the calibration bounds of the last Initialize.
	Tmin time.Time
	Tmax time.Time
	// TimeOffset is the sub-step offset shared by all stresses.
	TimeOffset time.Duration
	// Noise reports whether the noise model takes part in calibration.
	Noise bool
	// Solver is the name of the last solver used.
	Solver string
}

// FileInfo records provenance for dumps.
type FileInfo struct {
	Created  time.Time `json:"date_created"`
	Modified time.Time `json:"date_modified"`
	Version  string    `json:"version"`
}

// Model is a transfer-function time series model: the observed series
// explained as the sum of stress contributions, an optional constant and an
// optional transform, with an optional noise model for calibration.
//
// A Model is not safe for concurrent mutation. During Solve, structural
// changes are refused; residual and innovation evaluation read only the
// session snapshot and may run concurrently.
type Model struct {
	name     string
	observed *timeseries.Stress

	contributors []stressmodel.Contributor
	constant     *stressmodel.Constant
	transform    Transform
	noise        NoiseModel

	registry  *Registry
	overrides map[string]Override

	settings Settings
	freqAuto bool

	state   SessionState
	session *session
	fit     *FitResult

	metadata map[string]string
	fileInfo FileInfo

	sink   Sink
	logger *slog.Logger
	ids    IDGenerator
	now    func() time.Time
}

// Option configures a Model.
type Option func(*config)

type config struct {
	name     string
	constant bool
	noise    bool
	freq     timeseries.Freq
	warmup   int
	metadata map[string]string
	sink     Sink
	logger   *slog.Logger
	ids      IDGenerator
	now      func() time.Time
}

// WithName sets the model name. The default is the observed series name.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithConstant controls whether a constant is added. Default true.
func WithConstant(on bool) Option {
	return func(c *config) { c.constant = on }
}

// WithNoise controls whether an AR1 noise model is added. Default true.
func WithNoise(on bool) Option {
	return func(c *config) { c.noise = on }
}

// WithFreq fixes the working frequency instead of resolving it from the
// stresses.
func WithFreq(freq timeseries.Freq) Option {
	return func(c *config) { c.freq = freq }
}

// WithWarmup sets the warmup length in base units of the frequency.
func WithWarmup(n int) Option {
	return func(c *config) { c.warmup = n }
}

// WithMetadata attaches user metadata.
func WithMetadata(md map[string]string) Option {
	return func(c *config) { c.metadata = md }
}

// WithSink sets the diagnostics sink. The default logs to the logger.
func WithSink(s Sink) Option {
	return func(c *config) { c.sink = s }
}

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithIDGenerator sets the fit id generator. Default UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *config) { c.ids = g }
}

// WithClock sets the clock used for file info and fit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// New creates a model for the observed series. Missing observations are
// dropped according to the stress settings (the "oseries" preset drops
// them).
func New(observed *timeseries.Stress, opts ...Option) (*Model, error) {
	if observed == nil {
		return nil, configError("observed series is required")
	}
	cfg := config{constant: true, noise: true, warmup: DefaultWarmup}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.sink == nil {
		cfg.sink = LogSink{Logger: cfg.logger}
	}
	if cfg.ids == nil {
		cfg.ids = UUIDv7Generator{}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.warmup < 0 {
		return nil, configError("warmup must not be negative, got %d", cfg.warmup)
	}

	obs := observed.Series()
	if obs.Empty() {
		return nil, configError("observed series %q has no valid observations", observed.Name())
	}
	name := cfg.name
	if name == "" {
		name = observed.Name()
	}
	if name == "" {
		name = "Observations"
	}

	m := &Model{
		name:      name,
		observed:  observed,
		registry:  emptyRegistry(),
		overrides: map[string]Override{},
		settings: Settings{
			Freq:   timeseries.Daily,
			Warmup: cfg.warmup,
		},
		freqAuto: true,
		metadata: map[string]string{},
		sink:     cfg.sink,
		logger:   cfg.logger,
		ids:      cfg.ids,
		now:      cfg.now,
	}
	if !cfg.freq.IsZero() {
		if err := cfg.freq.Validate(); err != nil {
			return nil, configError("%v", err)
		}
		m.settings.Freq = cfg.freq
		m.freqAuto = false
	}
	for k, v := range cfg.metadata {
		m.metadata[k] = v
	}
	now := m.now().UTC()
	m.fileInfo = FileInfo{Created: now, Modified: now, Version: Version}

	if cfg.constant {
		if err := m.AddConstant(stressmodel.NewConstant("constant", obs.Mean())); err != nil {
			return nil, err
		}
	}
	if cfg.noise {
		if err := m.AddNoiseModel(noise.NewAR1("noise")); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Settings returns a copy of the settings.
func (m *Model) Settings() Settings { return m.settings }

// Registry returns the current parameter registry snapshot.
func (m *Model) Registry() *Registry { return m.registry }

// State returns the calibration session state.
func (m *Model) State() SessionState { return m.state }

// Fit returns the result of the last committed solve, or nil.
func (m *Model) Fit() *FitResult { return m.fit }

// Metadata returns a copy of the metadata.
func (m *Model) Metadata() map[string]string {
	out := make(map[string]string, len(m.metadata))
	for k, v := range m.metadata {
		out[k] = v
	}
	return out
}

// FileInfo returns the file information.
func (m *Model) FileInfo() FileInfo { return m.fileInfo }

// Observed returns the observed series with missing values handled.
func (m *Model) Observed() timeseries.Series { return m.observed.Series() }

// Contributors returns the stress contributors in insertion order.
func (m *Model) Contributors() []stressmodel.Contributor {
	out := make([]stressmodel.Contributor, len(m.contributors))
	copy(out, m.contributors)
	return out
}

// Contributor returns the contributor with the given name.
func (m *Model) Contributor(name string) (stressmodel.Contributor, bool) {
	i := m.indexOf(name)
	if i < 0 {
		return nil, false
	}
	return m.contributors[i], true
}

// Constant returns the constant, or nil.
func (m *Model) Constant() *stressmodel.Constant { return m.constant }

// Transform returns the transform, or nil.
func (m *Model) Transform() Transform { return m.transform }

// NoiseModel returns the noise model, or nil.
func (m *Model) NoiseModel() NoiseModel { return m.noise }

func (m *Model) indexOf(name string) int {
	for i, c := range m.contributors {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

func (m *Model) notify(level slog.Level, code NoticeCode, msg string, attrs ...slog.Attr) {
	m.sink.Notify(Notice{Level: level, Code: code, Message: msg, Attrs: attrs})
}

// guard refuses structural changes while a solve is running.
func (m *Model) guard(op string) error {
	if m.state == StateSolving {
		return invalidState("", "%s is not allowed while a solve is running", op)
	}
	return nil
}
