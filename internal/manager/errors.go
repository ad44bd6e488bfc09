package manager

import (
	"errors"
	"net/http"
)

// UsageHint is appended to malformed-input errors.
const UsageHint = `Input request should be in: {"inputs": {"input_str": ["text"], "params": {"k": "v"}}}`

// uninitializedMsg is reported when a request arrives before a successful Init.
const uninitializedMsg = "Model or tokenizer was not initialized correctly. Could not infer"

// loadError signals an initialization failure.
type loadError struct{ err error }

func (e loadError) Error() string   { return e.err.Error() }
func (e loadError) Unwrap() error   { return e.err }
func (e loadError) StatusCode() int { return http.StatusServiceUnavailable }

// uninitializedError signals a request served without a loaded model.
type uninitializedError struct{}

func (uninitializedError) Error() string   { return uninitializedMsg }
func (uninitializedError) StatusCode() int { return http.StatusServiceUnavailable }

// malformedInputError signals a request envelope that does not match the
// expected shape. The message always ends with UsageHint.
type malformedInputError struct{ detail string }

func (e malformedInputError) Error() string   { return "Error: " + e.detail + "." + UsageHint }
func (e malformedInputError) StatusCode() int { return http.StatusBadRequest }

// generationError wraps any failure inside tokenization, generation or decoding.
type generationError struct{ err error }

func (e generationError) Error() string   { return e.err.Error() }
func (e generationError) Unwrap() error   { return e.err }
func (e generationError) StatusCode() int { return http.StatusInternalServerError }

// ErrUninitialized is returned by Run before a successful Init.
var ErrUninitialized error = uninitializedError{}

func errMalformed(detail string) error { return malformedInputError{detail: detail} }

// IsLoad reports whether err is an initialization failure.
func IsLoad(err error) bool {
	var e loadError
	return errors.As(err, &e)
}

// IsUninitialized reports whether err means the model is not loaded.
func IsUninitialized(err error) bool {
	var e uninitializedError
	return errors.As(err, &e)
}

// IsMalformedInput reports whether err is a request shape error.
func IsMalformedInput(err error) bool {
	var e malformedInputError
	return errors.As(err, &e)
}

// IsGeneration reports whether err came from the generation loop.
func IsGeneration(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a runtime that is not compiled in or
// not installed, e.g. a missing build tag or llama-server binary.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
