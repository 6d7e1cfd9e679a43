package model

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against an *Error of the same code.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidState  = errors.New("invalid state")
)

// ErrorCode categorizes model errors.
type ErrorCode string

const (
	// ErrCodeConfiguration covers invalid or contradictory time bounds,
	// disagreeing time offsets and invalid settings. The operation is
	// aborted before any expensive work.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeInvalidState means the operation needs a component or
	// session state that is absent. Other model state is untouched.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error is a fatal model error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Component names the affected component, if any.
	Component string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (component=%s)", e.Code, e.Message, e.Component)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match the package sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Code == ErrCodeConfiguration
	case ErrInvalidState:
		return e.Code == ErrCodeInvalidState
	default:
		return false
	}
}

// IsConfigurationError returns true if err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeConfiguration
	}
	return false
}

// IsInvalidStateError returns true if err is an invalid state error.
// Uses errors.As to handle wrapped errors.
func IsInvalidStateError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalidState
	}
	return false
}

func configError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

func invalidState(component, format string, args ...any) *Error {
	return &Error{
		Code:      ErrCodeInvalidState,
		Message:   fmt.Sprintf(format, args...),
		Component: component,
	}
}
