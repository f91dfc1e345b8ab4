// Package errs defines the error taxonomy used across the bot's startup and
// runtime paths. Every startup step reports failures with one of these types so
// the entry point can decide how to exit.
package errs

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown     = "UNKNOWN"
	CodeConfig      = "CONFIG"
	CodeIO          = "IO"
	CodeStorageInit = "STORAGE_INIT"
	CodeDependency  = "DEPENDENCY"
	CodeRuntime     = "RUNTIME"
)

var (
	// ErrAlreadyStarted is returned when a one-shot component is run twice.
	ErrAlreadyStarted = errors.New("already started")

	// ErrShutdownTimeout is returned when background work did not stop within
	// the configured shutdown window.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// baseError carries the code, message and cause shared by every error type.
type baseError struct {
	code    string
	message string
	err     error
}

func (e *baseError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *baseError) Code() string {
	return e.code
}

func (e *baseError) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't have one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ConfigurationError reports a malformed or missing environment selection or
// configuration value.
type ConfigurationError struct {
	baseError
}

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{baseError{code: CodeConfig, message: message, err: cause}}
}

// IOError reports an unusable log sink.
type IOError struct {
	baseError
}

func NewIOError(message string, cause error) error {
	return &IOError{baseError{code: CodeIO, message: message, err: cause}}
}

// StorageInitError reports a connection or schema failure while opening the
// database.
type StorageInitError struct {
	baseError
}

func NewStorageInitError(message string, cause error) error {
	return &StorageInitError{baseError{code: CodeStorageInit, message: message, err: cause}}
}

// DependencyResolutionError reports a missing, duplicate or cyclic capability
// during graph assembly.
type DependencyResolutionError struct {
	baseError
	Capability string
}

func NewDependencyResolutionError(capability, message string, cause error) error {
	return &DependencyResolutionError{
		baseError:  baseError{code: CodeDependency, message: fmt.Sprintf("%s %q", message, capability), err: cause},
		Capability: capability,
	}
}

// RuntimeError reports a failure after startup: a failed message handler or
// background work that stopped.
type RuntimeError struct {
	baseError
}

func NewRuntimeError(message string, cause error) error {
	return &RuntimeError{baseError{code: CodeRuntime, message: message, err: cause}}
}

// IsFatal reports whether err belongs to the startup taxonomy that must abort
// the process.
func IsFatal(err error) bool {
	switch Code(err) {
	case CodeConfig, CodeIO, CodeStorageInit, CodeDependency:
		return true
	default:
		return false
	}
}
