package types

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitUser     = 1
	ExitInternal = 2
)

// ConfigError reports bad operator input: options, credentials or the shape
// of an input file.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError formats a ConfigError.
func NewConfigError(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a document that does not satisfy its schema.
type ValidationError struct {
	// Path is the dotted address of the offending field.
	Path string

	// Value is the offending value, nil when the field is missing.
	Value any

	// Message describes the failed rule.
	Message string

	// Source names the input file, when known.
	Source string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("field '%s': %s", e.Path, e.Message)
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: '%v')", e.Value)
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return msg
}

// InternalError reports a state the program does not know how to handle.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *InternalError) Unwrap() error { return e.Err }

// ExitCode maps an error to the process exit code. Configuration and
// validation problems are the operator's to fix; anything else is internal.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	var valErr *ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		return ExitUser
	}
	return ExitInternal
}
