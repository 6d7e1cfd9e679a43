// Package config reads model definition files and turns them into models.
//
// A definition names the observed series, the stress models with their
// response functions, the optional constant, transform and noise model,
// parameter overrides and the calibration settings used by the fit
// command. Definitions are written in YAML or CUE; CUE files are unified
// with the embedded #Model schema before decoding. Both forms are checked
// with struct validation before anything is built.
//
// Series are either read from two-column CSV files, resolved relative to
// the definition file, or given inline as a start time, a frequency and a
// list of values.
package config
