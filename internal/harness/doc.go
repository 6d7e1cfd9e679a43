// Package harness runs conformance scenarios against models.
//
// A scenario names a model definition, a list of steps performed on the
// model and assertions on the outcome. Every scenario runs with a fixed
// clock, fixed fit ids and a recording diagnostics sink, so the resulting
// snapshot is reproducible and can be compared against golden files.
//
// # Scenario Format
//
//	name: recharge_daily
//	description: "Daily recharge model resolves a daily axis"
//	model_file: models/recharge.yaml   # or an inline definition under model:
//	steps:
//	  - op: initialize
//	    warmup: 5
//	  - op: remove_noise
//	  - op: solve
//	    solver: initial
//	assertions:
//	  - type: freq
//	    freq: D
//	  - type: axis
//	    start: "2000-01-06"
//	    end: "2000-01-20"
//	    length: 15
//	  - type: parameter_names
//	    names: [recharge_A, recharge_a, recharge_f, constant_d]
//
// # Steps
//
// initialize, solve, set_parameter, add_transform, remove_transform,
// remove_noise, remove_constant and remove_stressmodel. A step expects to
// succeed unless it names an error code (CONFIGURATION or INVALID_STATE)
// under error.
//
// The solve step accepts the registered solvers and "initial", which
// returns the initial values unchanged.
//
// # Assertion Types
//
//   - freq: working frequency after the last step
//   - axis: start, end and length of the last opened session axis
//   - calibration_count: observations in the last opened session
//   - parameter_names: registry names in order
//   - notice: a diagnostics code was emitted, optionally exactly count times
//   - parameter: a registry value lies within [min, max]
//   - fit: the last solve's success flag and observation count
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/recharge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
package harness
