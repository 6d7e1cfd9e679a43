package solver

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors published by instrumented
// solvers.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Fits        *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics creates the solver collectors and registers them with reg. A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastas_solver_evaluations_total",
				Help: "Objective evaluations performed by solvers",
			},
			[]string{"solver"},
		),
		Fits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastas_solver_fits_total",
				Help: "Completed solves by solver and success flag",
			},
			[]string{"solver", "success"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pastas_solver_fit_duration_seconds",
				Help:    "Wall-clock duration of solves",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"solver"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Evaluations, m.Fits, m.Duration)
	}
	return m
}

type instrumented struct {
	inner   Solver
	metrics *Metrics
}

// Instrument wraps s so that every solve is recorded in m.
func Instrument(s Solver, m *Metrics) Solver {
	return &instrumented{inner: s, metrics: m}
}

func (i *instrumented) Name() string { return i.inner.Name() }

func (i *instrumented) Solve(ctx context.Context, p Problem) (Result, error) {
	start := time.Now()
	res, err := i.inner.Solve(ctx, p)
	name := i.inner.Name()
	i.metrics.Duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return res, err
	}
	i.metrics.Evaluations.WithLabelValues(name).Add(float64(res.Nfev))
	i.metrics.Fits.WithLabelValues(name, strconv.FormatBool(res.Success)).Inc()
	return res, nil
}
