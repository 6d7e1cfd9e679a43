package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pastas/internal/config"
	"github.com/roach88/pastas/internal/model"
	"github.com/roach88/pastas/internal/solver"
	"github.com/roach88/pastas/internal/testutil"
	"github.com/roach88/pastas/internal/timeseries"
	"github.com/roach88/pastas/internal/transform"
)

// SolverInitial is the scenario solver that commits the initial values
// unchanged. It never evaluates the objective.
const SolverInitial = "initial"

// Harness executes the steps of one scenario against one model.
type Harness struct {
	model    *model.Model
	recorder *model.Recorder
	logger   *slog.Logger
	session  *model.SessionInfo
}

// Run executes a scenario and returns the result.
//
// Each scenario builds a fresh model with a fixed clock, fit ids
// fit-1, fit-2, ... and a recording sink. Run returns an error only when
// the scenario cannot be set up; failed steps and assertions are reported
// in the result.
func Run(scenario *Scenario) (*Result, error) {
	f, err := loadModel(scenario)
	if err != nil {
		return nil, err
	}

	rec := model.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := config.Build(f,
		model.WithSink(rec),
		model.WithLogger(logger),
		model.WithClock(testutil.FixedNow(testutil.Epoch)),
		model.WithIDGenerator(fitIDs(scenario.Steps)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	h := &Harness{model: m, recorder: rec, logger: logger}
	ctx := context.Background()

	result := NewResult()
	for i, step := range scenario.Steps {
		err := h.execute(ctx, step)
		outcome := StepOutcome{Op: step.Op, Name: step.Name, Error: errorCode(err)}
		result.Steps = append(result.Steps, outcome)

		if outcome.Error != step.Error {
			want := step.Error
			if want == "" {
				want = "success"
			}
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %v", i, step.Op, want, errOrSuccess(err)))
		}
	}

	result.Freq = m.Settings().Freq
	result.Session = h.session
	result.Parameters = m.Registry().Names()
	for _, n := range rec.Notices() {
		result.Notices = append(result.Notices, string(n.Code))
	}
	result.Fit = snapshotFit(m.Fit())
	result.registry = m.Registry()

	for _, assertion := range scenario.Assertions {
		if err := evaluateAssertion(result, assertion); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// loadModel parses the inline definition or the model file of s.
func loadModel(s *Scenario) (*config.File, error) {
	if s.ModelFile != "" {
		f, err := config.LoadFile(s.modelPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load model: %w", err)
		}
		return f, nil
	}
	data, err := yaml.Marshal(&s.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inline model: %w", err)
	}
	f, err := config.Parse(data, config.FormatYAML, filepath.Join(s.dir, s.Name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return f, nil
}

// fitIDs returns a generator with one id per solve step.
func fitIDs(steps []Step) model.IDGenerator {
	var ids []string
	for _, s := range steps {
		if s.Op == OpSolve {
			ids = append(ids, fmt.Sprintf("fit-%d", len(ids)+1))
		}
	}
	return model.NewFixedGenerator(ids...)
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	m := h.model
	switch step.Op {
	case OpInitialize:
		opts, err := initOptions(step)
		if err != nil {
			return err
		}
		if err := m.Initialize(opts); err != nil {
			return err
		}
		h.captureSession()
		return nil

	case OpSolve:
		opts, err := initOptions(step)
		if err != nil {
			return err
		}
		slv, err := newSolver(step.Solver, h.logger)
		if err != nil {
			return err
		}
		_, err = m.Solve(ctx, &capturing{inner: slv, before: h.captureSession}, model.SolveOptions{InitOptions: opts})
		return err

	case OpSetParameter:
		return m.SetParameter(step.Name, model.Override{
			Initial: step.Initial,
			PMin:    step.PMin,
			PMax:    step.PMax,
			Vary:    step.Vary,
		})

	case OpAddTransform:
		nparam := step.NParam
		if nparam == 0 {
			nparam = 2
		}
		tr, err := transform.ForSeries(config.TransformName, nparam, m.Observed())
		if err != nil {
			return err
		}
		return m.AddTransform(tr)

	case OpRemoveTransform:
		return m.RemoveTransform()
	case OpRemoveNoise:
		return m.RemoveNoiseModel()
	case OpRemoveConstant:
		return m.RemoveConstant()
	case OpRemoveStressModel:
		return m.RemoveStressModel(step.Name)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) captureSession() {
	if info, ok := h.model.Session(); ok {
		h.session = &info
	}
}

func initOptions(step Step) (model.InitOptions, error) {
	opts := model.InitOptions{
		Freq:        timeseries.Freq(step.Freq),
		Warmup:      step.Warmup,
		KeepOptimal: step.KeepOptimal,
	}
	var err error
	if step.Tmin != "" {
		if opts.Tmin, err = timeseries.ParseTime(step.Tmin); err != nil {
			return opts, fmt.Errorf("tmin: %w", err)
		}
	}
	if step.Tmax != "" {
		if opts.Tmax, err = timeseries.ParseTime(step.Tmax); err != nil {
			return opts, fmt.Errorf("tmax: %w", err)
		}
	}
	if opts.Noise, err = model.ParseNoiseMode(step.Noise); err != nil {
		return opts, err
	}
	return opts, nil
}

func newSolver(name string, logger *slog.Logger) (solver.Solver, error) {
	switch name {
	case SolverInitial:
		return initialSolver{}, nil
	case "", solver.NameLeastSquares:
		return &solver.LeastSquares{Logger: logger}, nil
	}
	return solver.New(name)
}

// initialSolver returns the initial values as optimal.
type initialSolver struct{}

func (initialSolver) Name() string { return SolverInitial }

func (initialSolver) Solve(_ context.Context, p solver.Problem) (solver.Result, error) {
	return solver.Result{
		Optimal: append([]float64(nil), p.Initial...),
		Stderr:  make([]float64, len(p.Initial)),
		Success: true,
		Message: "initial values",
	}, nil
}

// capturing runs before ahead of the wrapped solver, while the session of
// the solve is still open.
type capturing struct {
	inner  solver.Solver
	before func()
}

func (c *capturing) Name() string { return c.inner.Name() }

func (c *capturing) Solve(ctx context.Context, p solver.Problem) (solver.Result, error) {
	c.before()
	return c.inner.Solve(ctx, p)
}

// errorCode maps err to its model error code. Errors that carry no code
// are reported as OTHER.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *model.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "OTHER"
}

func errOrSuccess(err error) any {
	if err == nil {
		return "success"
	}
	return err
}
