package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is an inline model definition.
	Model yaml.Node `yaml:"model,omitempty"`

	// ModelFile is a model definition path, relative to the scenario file.
	ModelFile string `yaml:"model_file,omitempty"`

	// Steps are performed on the model in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// dir resolves ModelFile and relative series files of inline models.
	dir string
}

// Step is one operation on the model.
type Step struct {
	Op string `yaml:"op"`

	// initialize and solve
	Tmin        string `yaml:"tmin,omitempty"`
	Tmax        string `yaml:"tmax,omitempty"`
	Freq        string `yaml:"freq,omitempty"`
	Warmup      *int   `yaml:"warmup,omitempty"`
	Noise       string `yaml:"noise,omitempty"`
	KeepOptimal bool   `yaml:"keep_optimal,omitempty"`

	// solve
	Solver string `yaml:"solver,omitempty"`

	// set_parameter and remove_stressmodel
	Name    string   `yaml:"name,omitempty"`
	Initial *float64 `yaml:"initial,omitempty"`
	PMin    *float64 `yaml:"pmin,omitempty"`
	PMax    *float64 `yaml:"pmax,omitempty"`
	Vary    *bool    `yaml:"vary,omitempty"`

	// add_transform
	NParam int `yaml:"nparam,omitempty"`

	// Error is the expected model error code. Empty means success.
	Error string `yaml:"error,omitempty"`
}

// Step operations.
const (
	OpInitialize        = "initialize"
	OpSolve             = "solve"
	OpSetParameter      = "set_parameter"
	OpAddTransform      = "add_transform"
	OpRemoveTransform   = "remove_transform"
	OpRemoveNoise       = "remove_noise"
	OpRemoveConstant    = "remove_constant"
	OpRemoveStressModel = "remove_stressmodel"
)

// Assertion validates the outcome of a scenario.
type Assertion struct {
	Type string `yaml:"type"`

	// freq
	Freq string `yaml:"freq,omitempty"`

	// axis
	Start  string `yaml:"start,omitempty"`
	End    string `yaml:"end,omitempty"`
	Length int    `yaml:"length,omitempty"`

	// calibration_count, notice and fit
	Count *int `yaml:"count,omitempty"`

	// parameter_names
	Names []string `yaml:"names,omitempty"`

	// notice
	Code string `yaml:"code,omitempty"`

	// parameter: Field is "initial" or "optimal" (default).
	Name  string   `yaml:"name,omitempty"`
	Field string   `yaml:"field,omitempty"`
	Min   *float64 `yaml:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty"`

	// fit
	Success *bool `yaml:"success,omitempty"`
}

// Assertion type constants.
const (
	AssertFreq             = "freq"
	AssertAxis             = "axis"
	AssertCalibrationCount = "calibration_count"
	AssertParameterNames   = "parameter_names"
	AssertNotice           = "notice"
	AssertParameter        = "parameter"
	AssertFit              = "fit"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Dir returns the directory the scenario was loaded from.
func (s *Scenario) Dir() string { return s.dir }

// SetDir sets the directory relative paths resolve against. Used for
// scenarios built in code.
func (s *Scenario) SetDir(dir string) { s.dir = dir }

// hasInlineModel reports whether an inline definition is present.
func (s *Scenario) hasInlineModel() bool {
	return s.Model.Kind != 0
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.ModelFile == "" && !s.hasInlineModel():
		return fmt.Errorf("one of model and model_file is required")
	case s.ModelFile != "" && s.hasInlineModel():
		return fmt.Errorf("model and model_file are mutually exclusive")
	case s.ModelFile != "":
		if _, err := os.Stat(s.modelPath()); os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", s.modelPath())
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) modelPath() string {
	if filepath.IsAbs(s.ModelFile) {
		return s.ModelFile
	}
	return filepath.Join(s.dir, s.ModelFile)
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpInitialize, OpSolve, OpAddTransform, OpRemoveTransform, OpRemoveNoise, OpRemoveConstant:
	case OpSetParameter, OpRemoveStressModel:
		if s.Name == "" {
			return fmt.Errorf("steps[%d]: name is required for %s", index, s.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	switch s.Error {
	case "", "CONFIGURATION", "INVALID_STATE", "OTHER":
	default:
		return fmt.Errorf("steps[%d]: unknown error code %q", index, s.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFreq:
		if a.Freq == "" {
			return fmt.Errorf("assertions[%d]: freq is required for freq", index)
		}
	case AssertAxis:
		if a.Start == "" && a.End == "" && a.Length == 0 {
			return fmt.Errorf("assertions[%d]: one of start, end and length is required for axis", index)
		}
	case AssertCalibrationCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for calibration_count", index)
		}
	case AssertParameterNames:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for parameter_names", index)
		}
	case AssertNotice:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for notice", index)
		}
	case AssertParameter:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for parameter", index)
		}
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: one of min and max is required for parameter", index)
		}
		if a.Field != "" && a.Field != "initial" && a.Field != "optimal" {
			return fmt.Errorf("assertions[%d]: field must be initial or optimal", index)
		}
	case AssertFit:
		if a.Success == nil && a.Count == nil {
			return fmt.Errorf("assertions[%d]: one of success and count is required for fit", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
