package sampler

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted is returned by Evaluator.Eval once MaxNDead evaluations
// have been spent. Engines map it to TerminationMaxEvaluations; Run never
// returns it.
var ErrBudgetExhausted = errors.New("likelihood evaluation budget exhausted")

// configError reports a Settings value outside its valid range.
type configError struct {
	field string
	msg   string
}

func (e configError) Error() string { return "invalid settings: " + e.field + ": " + e.msg }

// Field returns the offending settings field (snake_case, as in config files).
func (e configError) Field() string { return e.field }

// ErrConfig constructs a configuration error for field.
func ErrConfig(field, msg string) error { return configError{field: field, msg: msg} }

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	var ce configError
	return errors.As(err, &ce)
}

// ConfigErrorField returns the field named by a configuration error, or "".
func ConfigErrorField(err error) string {
	var ce configError
	if errors.As(err, &ce) {
		return ce.field
	}
	return ""
}

// engineUnavailableError signals an engine that is not registered or cannot be
// linked (missing build tag, missing shared library, unresolved symbol).
type engineUnavailableError struct{ msg string }

func (e engineUnavailableError) Error() string { return e.msg }

// ErrEngineUnavailable constructs an engineUnavailableError.
func ErrEngineUnavailable(msg string) error { return engineUnavailableError{msg: msg} }

// IsEngineUnavailable reports whether err indicates a missing or unlinkable engine.
func IsEngineUnavailable(err error) bool {
	var ee engineUnavailableError
	return errors.As(err, &ee)
}

// callbackError wraps a panic raised by the likelihood callback.
type callbackError struct{ cause any }

func (e callbackError) Error() string { return fmt.Sprintf("likelihood callback panicked: %v", e.cause) }

// IsCallbackError reports whether err originates from a failing likelihood callback.
func IsCallbackError(err error) bool {
	var ce callbackError
	return errors.As(err, &ce)
}

// busyError signals a Run on a Runner that is already running.
type busyError struct{ runID string }

func (e busyError) Error() string { return "runner busy: run " + e.runID + " in progress" }

// IsBusy reports whether err indicates a concurrent Run on the same Runner.
func IsBusy(err error) bool {
	var be busyError
	return errors.As(err, &be)
}
