package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pastas/internal/canon"
)

// Snapshot is the golden representation of a scenario run.
type Snapshot struct {
	Scenario   string           `json:"scenario"`
	Steps      []StepOutcome    `json:"steps"`
	Freq       string           `json:"freq"`
	Session    *SessionSnapshot `json:"session,omitempty"`
	Parameters []string         `json:"parameters"`
	Notices    []string         `json:"notices"`
	Fit        *FitSnapshot     `json:"fit,omitempty"`
}

// SessionSnapshot is the golden form of the last session.
type SessionSnapshot struct {
	AxisStart   string `json:"axis_start"`
	AxisEnd     string `json:"axis_end"`
	AxisLen     int    `json:"axis_len"`
	NObs        int    `json:"nobs"`
	Interpolate bool   `json:"interpolate"`
	Noise       bool   `json:"noise"`
}

// NewSnapshot builds the golden representation of result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario:   name,
		Steps:      result.Steps,
		Freq:       string(result.Freq),
		Parameters: result.Parameters,
		Notices:    result.Notices,
		Fit:        result.Fit,
	}
	if info := result.Session; info != nil {
		s.Session = &SessionSnapshot{
			AxisStart:   info.AxisStart.UTC().Format(timeLayout),
			AxisEnd:     info.AxisEnd.UTC().Format(timeLayout),
			AxisLen:     info.AxisLen,
			NObs:        info.NObs,
			Interpolate: info.Interpolate,
			Noise:       info.Noise,
		}
	}
	return s
}

const timeLayout = "2006-01-02T15:04:05Z"

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := canon.Marshal(NewSnapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
