// Package timeseries provides the time-indexed series types used by every
// other package: the observed series, the forcing (stress) series and the
// simulated signal.
//
// # Frequencies
//
// A Freq is a fixed-step frequency string in the pandas spelling used by
// model definition files:
//
//	"D"      one day
//	"7D"     seven days
//	"H"      one hour (also "h")
//	"15min"  fifteen minutes (also "15T")
//	"W"      one week
//	"s"      one second (also "S")
//
// Calendar frequencies (months, years) are not fixed-step and are rejected.
//
// # Stresses
//
// A Stress wraps an original Series with resampling settings. Update
// resamples the original onto a regular index at a target frequency, filling
// the head, the tail and interior gaps according to the settings. Presets
// exist for the common forcing kinds ("prec", "evap", "well", "waterlevel")
// and for the observed series ("oseries").
//
// All timestamps are treated as UTC instants. Offsets within a step (for
// example daily values recorded at 08:00) are preserved by resampling; see
// TimeOffset.
package timeseries
