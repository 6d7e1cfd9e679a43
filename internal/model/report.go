package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/pastas/internal/stats"
	"github.com/roach88/pastas/internal/timeseries"
)

// DefaultBoundsAlpha is the fraction of the parameter range within which
// an optimal value counts as close to a bound.
const DefaultBoundsAlpha = 0.01

// Observations returns the observed series within [tmin, tmax]. Zero
// bounds default to the observed extent.
func (m *Model) Observations(tmin, tmax time.Time) (timeseries.Series, error) {
	tmin, tmax, err := m.ResolveBounds(tmin, tmax, m.settings.Freq, true, false)
	if err != nil {
		return timeseries.Series{}, err
	}
	return m.observed.Series().Slice(tmin, tmax), nil
}

// Contribution returns the signal of one contributor within [tmin, tmax]
// on the model's simulation axis.
func (m *Model) Contribution(name string, tmin, tmax time.Time) (timeseries.Series, error) {
	i := m.indexOf(name)
	if i < 0 {
		return timeseries.Series{}, invalidState(name, "no stress model with this name")
	}
	p, _, err := m.registry.Vector(name)
	if err != nil {
		return timeseries.Series{}, err
	}
	axis, dt, err := m.simulationAxis(time.Time{}, time.Time{}, m.settings.Freq)
	if err != nil {
		return timeseries.Series{}, err
	}
	c, err := m.contributors[i].Simulate(p, axis, dt)
	if err != nil {
		return timeseries.Series{}, err
	}
	return c.Slice(tmin, tmax), nil
}

// TransformContribution returns the simulation minus the simulation
// without the transform, within [tmin, tmax].
func (m *Model) TransformContribution(tmin, tmax time.Time) (timeseries.Series, error) {
	if m.transform == nil {
		return timeseries.Series{}, invalidState("", "model has no transform")
	}
	p, err := m.parameters(nil)
	if err != nil {
		return timeseries.Series{}, err
	}
	axis, dt, err := m.simulationAxis(time.Time{}, time.Time{}, m.settings.Freq)
	if err != nil {
		return timeseries.Series{}, err
	}
	with, err := m.compose(p, axis, dt, true)
	if err != nil {
		return timeseries.Series{}, err
	}
	without, err := m.compose(p, axis, dt, false)
	if err != nil {
		return timeseries.Series{}, err
	}
	out := with.WithName(m.transform.Name())
	for i := range out.Values {
		out.Values[i] -= without.Values[i]
	}
	return out.Slice(tmin, tmax), nil
}

// Response is a block or step response of a contributor. T holds the
// lag in days of each value.
type Response struct {
	Name   string
	T      []float64
	Values []float64
}

// BlockResponse returns the block response of a contributor at the model
// frequency.
func (m *Model) BlockResponse(name string) (Response, error) {
	return m.response(name, false)
}

// StepResponse returns the step response of a contributor at the model
// frequency.
func (m *Model) StepResponse(name string) (Response, error) {
	return m.response(name, true)
}

func (m *Model) response(name string, step bool) (Response, error) {
	c, ok := m.Contributor(name)
	if !ok {
		return Response{}, invalidState(name, "no stress model with this name")
	}
	p, _, err := m.registry.Vector(name)
	if err != nil {
		return Response{}, err
	}
	dt, err := m.settings.Freq.Days()
	if err != nil {
		return Response{}, configError("%v", err)
	}
	rf := c.RFunc()
	p = p[:rf.NParam()]
	var values []float64
	if step {
		values = rf.Step(p, dt)
	} else {
		values = rf.Block(p, dt)
	}
	t := make([]float64, len(values))
	for i := range t {
		t[i] = float64(i+1) * dt
	}
	return Response{Name: name, T: t, Values: values}, nil
}

// Stress returns the input series of a contributor for the current
// parameters.
func (m *Model) Stress(name string) (timeseries.Series, error) {
	c, ok := m.Contributor(name)
	if !ok {
		return timeseries.Series{}, invalidState(name, "no stress model with this name")
	}
	p, _, err := m.registry.Vector(name)
	if err != nil {
		return timeseries.Series{}, err
	}
	return c.Stress(p), nil
}

// CheckParameterBounds returns the parameters whose optimal value lies
// within alpha of the range to pmin or pmax. Rows without both bounds or
// without an optimal value are skipped.
func (m *Model) CheckParameterBounds(alpha float64) (lower, upper []string) {
	for _, row := range m.registry.rows {
		if !row.HasOptimal() || math.IsNaN(row.PMin) || math.IsNaN(row.PMax) {
			continue
		}
		prange := row.PMax - row.PMin
		if prange <= 0 {
			continue
		}
		pnorm := (row.Optimal - row.PMin) / prange
		switch {
		case pnorm < alpha:
			lower = append(lower, row.Name)
		case pnorm > 1-alpha:
			upper = append(upper, row.Name)
		}
	}
	return lower, upper
}

// Statistics returns the goodness-of-fit statistics of the committed fit
// over its calibration period.
func (m *Model) Statistics() (stats.Summary, error) {
	if m.fit == nil {
		return stats.Summary{}, invalidState("", "model is not solved")
	}
	p, _, err := m.registry.Vector("")
	if err != nil {
		return stats.Summary{}, err
	}
	res, err := m.residuals(p, m.fit.Tmin, m.fit.Tmax, m.fit.Freq)
	if err != nil {
		return stats.Summary{}, err
	}
	obs := m.observed.Series().Lookup(res.Index, math.NaN())
	return stats.Summarize(obs, res.Values, countVary(m.registry.rows)), nil
}

// Report renders the fit report of the committed fit: the model block,
// the fit statistics, the parameter table and bound warnings.
func (m *Model) Report() (string, error) {
	if m.fit == nil {
		return "", invalidState("", "model is not solved")
	}
	sum, err := m.Statistics()
	if err != nil {
		return "", err
	}

	noise := "None"
	if m.fit.Noise && m.noise != nil {
		noise = m.noise.Name()
	}
	left := [][2]string{
		{"nfev", fmt.Sprint(m.fit.Nfev)},
		{"nobs", fmt.Sprint(sum.NObs)},
		{"noise", noise},
		{"tmin", m.fit.Tmin.Format(time.DateTime)},
		{"tmax", m.fit.Tmax.Format(time.DateTime)},
		{"freq", string(m.fit.Freq)},
		{"warmup", fmt.Sprint(m.fit.Warmup)},
		{"solver", m.fit.Solver},
	}
	right := [][2]string{
		{"EVP", fmt.Sprintf("%.2f", sum.EVP)},
		{"RMSE", fmt.Sprintf("%.2f", sum.RMSE)},
		{"Pearson R2", fmt.Sprintf("%.2f", sum.RSq)},
		{"AIC", fmt.Sprintf("%.2f", sum.AIC)},
		{"BIC", fmt.Sprintf("%.2f", sum.BIC)},
		{"success", fmt.Sprint(m.fit.Success)},
	}

	var b strings.Builder
	rule := strings.Repeat("=", 28)
	fmt.Fprintf(&b, "%-32s%s\n", "Model Results "+m.name, "Fit Statistics")
	fmt.Fprintf(&b, "%s    %s\n", rule, rule)
	for i := range left {
		r := [2]string{}
		if i < len(right) {
			r = right[i]
		}
		fmt.Fprintf(&b, "%-8s %-22s %-10s %17s\n", left[i][0], left[i][1], r[0], r[1])
	}

	rows := m.registry.rows
	fmt.Fprintf(&b, "\nParameters (%d were optimized)\n%s\n", countVary(rows), strings.Repeat("=", 60))
	fmt.Fprintf(&b, "%-16s %12s %26s %12s %6s\n", "", "optimal", "stderr", "initial", "vary")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-16s %12.5g %26s %12.5g %6t\n",
			row.Name, row.Optimal, formatStderr(row.Optimal, row.Stderr), row.Initial, row.Vary)
	}

	lower, upper := m.CheckParameterBounds(DefaultBoundsAlpha)
	var warnings []string
	if len(lower) > 0 {
		warnings = append(warnings, fmt.Sprintf("Parameter values of %v are close to their minimum values.", lower))
	}
	if len(upper) > 0 {
		warnings = append(warnings, fmt.Sprintf("Parameter values of %v are close to their maximum values.", upper))
	}
	if !m.fit.Success {
		warnings = append(warnings, fmt.Sprintf("Solver did not converge: %s", m.fit.Message))
	}
	fmt.Fprintf(&b, "\nWarnings\n%s\n", strings.Repeat("=", 60))
	for i, w := range warnings {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, w)
	}
	return b.String(), nil
}

func countVary(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Vary {
			n++
		}
	}
	return n
}

func formatStderr(optimal, stderr float64) string {
	if math.IsNaN(stderr) {
		return "nan"
	}
	pct := math.Abs(stderr / optimal * 100)
	return fmt.Sprintf("±%.5e (%.2f%%)", stderr, pct)
}
