package model

import (
	"errors"
	"fmt"
)

// ConfigError reports malformed or inconsistent input data
type ConfigError struct {
	Field  string
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("invalid %v: %v", err.Field, err.Reason)
}

// ModelBuildError reports a model that cannot be compiled: inconsistent data, conflicting pins or an ambiguous
// objective. Err holds the *ConfigError when the data itself is at fault.
type ModelBuildError struct {
	Reason string
	Err    error
}

func (err *ModelBuildError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("cannot build model: %v: %v", err.Reason, err.Err)
	}
	return fmt.Sprintf("cannot build model: %v", err.Reason)
}

func (err *ModelBuildError) Unwrap() error {
	return err.Err
}

// ErrInvalidAssignment is returned when solver values break a constraint of the compiled program
var ErrInvalidAssignment = errors.New("assignment violates the compiled program")

func buildError(reason string, args ...any) *ModelBuildError {
	return &ModelBuildError{Reason: fmt.Sprintf(reason, args...)}
}

// IsConfigError reports whether err was caused by malformed input data
func IsConfigError(err error) bool {
	var configError *ConfigError
	return errors.As(err, &configError)
}
