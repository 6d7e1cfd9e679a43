package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/pastas/internal/stressmodel"
	"github.com/roach88/pastas/internal/timeseries"
)

// Validation error codes (E200-E299).
const (
	ErrCodeRequired      = "E201" // required field missing
	ErrCodeInvalidValue  = "E202" // value outside the allowed set or range
	ErrCodeInvalidTime   = "E203" // unparseable timestamp
	ErrCodeInvalidFreq   = "E204" // unparseable frequency
	ErrCodeSeriesSource  = "E205" // series needs exactly one of file and values
	ErrCodeStressKind    = "E206" // stress model series do not match its kind
	ErrCodeDuplicateName = "E207" // stress model names must be unique
)

// ValidationError is one problem found in a definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every problem of a definition.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid model definition: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("timestamp", isTimestamp)
	_ = v.RegisterValidation("freq", isFreq)

	// Report fields by their file names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isTimestamp(fl validator.FieldLevel) bool {
	_, err := timeseries.ParseTime(fl.Field().String())
	return err == nil
}

func isFreq(fl validator.FieldLevel) bool {
	return timeseries.Freq(fl.Field().String()).Validate() == nil
}

// Validate checks f and returns ValidationErrors listing every problem.
func (f *File) Validate() error {
	var errs ValidationErrors

	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate model definition: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   fieldPath(fe),
				Message: formatFieldError(fe),
				Code:    codeForTag(fe.Tag()),
			})
		}
	}

	errs = append(errs, checkSeries("oseries", &f.Observed)...)

	seen := make(map[string]bool, len(f.StressModels))
	for i, sm := range f.StressModels {
		path := fmt.Sprintf("stressmodels[%d]", i)
		if sm.Name != "" && seen[sm.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate stress model name %q", sm.Name),
				Code:    ErrCodeDuplicateName,
			})
		}
		seen[sm.Name] = true
		errs = append(errs, checkStressModel(path, sm)...)
	}

	if f.Fit.Weights != nil {
		errs = append(errs, checkSeries("fit.weights", f.Fit.Weights)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkStressModel(path string, sm StressModel) []ValidationError {
	var errs []ValidationError
	kindErr := func(field, msg string) {
		errs = append(errs, ValidationError{Field: path + "." + field, Message: msg, Code: ErrCodeStressKind})
	}
	switch sm.Kind {
	case stressmodel.KindStressModel:
		if sm.Stress == nil {
			kindErr("stress", "StressModel needs a stress")
		} else {
			errs = append(errs, checkSeries(path+".stress", sm.Stress)...)
		}
		if sm.Prec != nil || sm.Evap != nil {
			kindErr("kind", "prec and evap are only read by RechargeModel")
		}
	case stressmodel.KindRechargeModel:
		if sm.Prec == nil {
			kindErr("prec", "RechargeModel needs prec")
		} else {
			errs = append(errs, checkSeries(path+".prec", sm.Prec)...)
		}
		if sm.Evap == nil {
			kindErr("evap", "RechargeModel needs evap")
		} else {
			errs = append(errs, checkSeries(path+".evap", sm.Evap)...)
		}
		if sm.Stress != nil {
			kindErr("kind", "stress is only read by StressModel")
		}
	}
	return errs
}

func checkSeries(path string, s *Series) []ValidationError {
	srcErr := func(msg string) []ValidationError {
		return []ValidationError{{Field: path, Message: msg, Code: ErrCodeSeriesSource}}
	}
	switch {
	case s.File == "" && len(s.Values) == 0:
		return srcErr("one of file and values is required")
	case s.File != "" && len(s.Values) > 0:
		return srcErr("file and values are mutually exclusive")
	case len(s.Values) > 0 && s.Start == "":
		return srcErr("start is required with inline values")
	}
	return nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func codeForTag(tag string) string {
	switch tag {
	case "required":
		return ErrCodeRequired
	case "timestamp":
		return ErrCodeInvalidTime
	case "freq":
		return ErrCodeInvalidFreq
	default:
		return ErrCodeInvalidValue
	}
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "timestamp":
		return fmt.Sprintf("%s must be a timestamp like 2006-01-02 or 2006-01-02T15:04:05Z", field)
	case "freq":
		return fmt.Sprintf("%s must be a frequency like D, 12H or 30min", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
