package harness

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/pastas/internal/timeseries"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Steps    []StepOutcome // Executed steps for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for i, s := range e.Steps {
			status := "ok"
			if s.Error != "" {
				status = s.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, s.Op, status)
		}
	}
	return buf.String()
}

// evaluateAssertion dispatches to the appropriate assertion function.
func evaluateAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertFreq:
		return assertFreq(r, a)
	case AssertAxis:
		return assertAxis(r, a)
	case AssertCalibrationCount:
		return assertCalibrationCount(r, a)
	case AssertParameterNames:
		return assertParameterNames(r, a)
	case AssertNotice:
		return assertNotice(r, a)
	case AssertParameter:
		return assertParameter(r, a)
	case AssertFit:
		return assertFit(r, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertFreq(r *Result, a Assertion) error {
	if r.Freq == timeseries.Freq(a.Freq) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFreq,
		Expected: a.Freq,
		Actual:   string(r.Freq),
		Steps:    r.Steps,
	}
}

// assertAxis checks the bounds and length of the last session axis.
// Omitted fields are not checked.
func assertAxis(r *Result, a Assertion) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertAxis,
			Expected: fmt.Sprintf("start=%s end=%s length=%d", orAny(a.Start), orAny(a.End), a.Length),
			Actual:   actual,
			Steps:    r.Steps,
		}
	}
	if r.Session == nil {
		return fail("no session was opened")
	}
	s := r.Session
	actual := fmt.Sprintf("start=%s end=%s length=%d",
		s.AxisStart.Format(time.RFC3339), s.AxisEnd.Format(time.RFC3339), s.AxisLen)

	for _, check := range []struct {
		want string
		got  time.Time
	}{{a.Start, s.AxisStart}, {a.End, s.AxisEnd}} {
		if check.want == "" {
			continue
		}
		want, err := timeseries.ParseTime(check.want)
		if err != nil {
			return fmt.Errorf("axis assertion: %w", err)
		}
		if !want.Equal(check.got) {
			return fail(actual)
		}
	}
	if a.Length != 0 && a.Length != s.AxisLen {
		return fail(actual)
	}
	return nil
}

func assertCalibrationCount(r *Result, a Assertion) error {
	if r.Session == nil {
		return &AssertionError{
			Type:     AssertCalibrationCount,
			Expected: fmt.Sprintf("%d observations", *a.Count),
			Actual:   "no session was opened",
			Steps:    r.Steps,
		}
	}
	if r.Session.NObs != *a.Count {
		return &AssertionError{
			Type:     AssertCalibrationCount,
			Expected: fmt.Sprintf("%d observations", *a.Count),
			Actual:   fmt.Sprintf("%d observations", r.Session.NObs),
			Steps:    r.Steps,
		}
	}
	return nil
}

func assertParameterNames(r *Result, a Assertion) error {
	if slices.Equal(r.Parameters, a.Names) {
		return nil
	}
	return &AssertionError{
		Type:     AssertParameterNames,
		Expected: fmt.Sprintf("%v", a.Names),
		Actual:   fmt.Sprintf("%v", r.Parameters),
		Steps:    r.Steps,
	}
}

// assertNotice checks that a code was emitted, exactly Count times when
// Count is set.
func assertNotice(r *Result, a Assertion) error {
	n := r.noticeCount(a.Code)
	if a.Count != nil {
		if n == *a.Count {
			return nil
		}
		return &AssertionError{
			Type:     AssertNotice,
			Expected: fmt.Sprintf("%s emitted %d times", a.Code, *a.Count),
			Actual:   fmt.Sprintf("emitted %d times (notices %v)", n, r.Notices),
			Steps:    r.Steps,
		}
	}
	if n > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotice,
		Expected: fmt.Sprintf("%s emitted", a.Code),
		Actual:   fmt.Sprintf("not emitted (notices %v)", r.Notices),
		Steps:    r.Steps,
	}
}

// assertParameter checks that a registry value lies within [min, max].
func assertParameter(r *Result, a Assertion) error {
	row, ok := r.registry.Row(a.Name)
	if !ok {
		return &AssertionError{
			Type:     AssertParameter,
			Expected: fmt.Sprintf("parameter %s", a.Name),
			Actual:   fmt.Sprintf("not in registry %v", r.Parameters),
			Steps:    r.Steps,
		}
	}
	field, v := "optimal", row.Optimal
	if a.Field == "initial" {
		field, v = "initial", row.Initial
	}
	if (a.Min != nil && !(v >= *a.Min)) || (a.Max != nil && !(v <= *a.Max)) {
		return &AssertionError{
			Type:     AssertParameter,
			Expected: fmt.Sprintf("%s %s in [%s, %s]", a.Name, field, bound(a.Min), bound(a.Max)),
			Actual:   fmt.Sprintf("%g", v),
			Steps:    r.Steps,
		}
	}
	return nil
}

func assertFit(r *Result, a Assertion) error {
	if r.Fit == nil {
		return &AssertionError{
			Type:     AssertFit,
			Expected: "a committed fit",
			Actual:   "model was never solved",
			Steps:    r.Steps,
		}
	}
	if a.Success != nil && r.Fit.Success != *a.Success {
		return &AssertionError{
			Type:     AssertFit,
			Expected: fmt.Sprintf("success=%t", *a.Success),
			Actual:   fmt.Sprintf("success=%t", r.Fit.Success),
			Steps:    r.Steps,
		}
	}
	if a.Count != nil && r.Fit.NObs != *a.Count {
		return &AssertionError{
			Type:     AssertFit,
			Expected: fmt.Sprintf("nobs=%d", *a.Count),
			Actual:   fmt.Sprintf("nobs=%d", r.Fit.NObs),
			Steps:    r.Steps,
		}
	}
	return nil
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func bound(v *float64) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprintf("%g", *v)
}
