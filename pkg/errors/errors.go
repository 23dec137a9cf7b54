// Package errors provides structured error types for aidiagram.
//
// Every failure raised by the generation-to-render pipeline carries one of a
// small set of machine-readable codes. The pipeline orchestrator is the only
// place that recovers from these errors; it turns them into a visible error
// block using [UserMessage].
//
// # Error Codes
//
//   - CONFIGURATION_ERROR: a required setting is missing or invalid
//   - TRANSPORT_ERROR: the generative service could not be reached or replied
//     with a non-success status
//   - MALFORMED_RESPONSE: the service replied but violated the response contract
//   - GENERATION_FAILED: the service replied with its own error message
//   - RESOURCE_ERROR: the scratch file lifecycle failed
//   - RENDER_ENGINE_ERROR: the layout engine failed or could not be started
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "no API key configured")
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // prompt for a key
//	}
//
//	err := errors.Wrap(errors.ErrCodeResource, origErr, "write scratch file")
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the pipeline error taxonomy.
const (
	ErrCodeConfiguration     Code = "CONFIGURATION_ERROR"
	ErrCodeTransport         Code = "TRANSPORT_ERROR"
	ErrCodeMalformedResponse Code = "MALFORMED_RESPONSE"
	ErrCodeGeneration        Code = "GENERATION_FAILED"
	ErrCodeResource          Code = "RESOURCE_ERROR"
	ErrCodeRenderEngine      Code = "RENDER_ENGINE_ERROR"
)

// coder is implemented by every error type in this package.
type coder interface {
	ErrorCode() Code
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the error's code.
func (e *Error) ErrorCode() Code {
	return e.Code
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the error chain and stops at the first error that carries a code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// UserMessage returns the message shown in place of a failed diagram.
// The code prefix is dropped; the cause, when present, is kept so that
// status codes and OS errors remain visible.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	var t *TransportError
	if errors.As(err, &t) {
		return t.message()
	}
	var g *EngineError
	if errors.As(err, &g) {
		return g.message()
	}
	return err.Error()
}

// TransportError reports a failed call to the generative service.
// Status is zero when no response was received at all.
type TransportError struct {
	Method string
	URL    string
	Status int
	Body   string
	Cause  error
}

func (e *TransportError) message() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Cause)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCodeTransport, e.message())
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error { return e.Cause }

// ErrorCode returns [ErrCodeTransport].
func (e *TransportError) ErrorCode() Code { return ErrCodeTransport }

// ExitUnavailable is the exit code recorded when the engine never started.
const ExitUnavailable = -1

// EngineError reports a failed layout engine invocation.
type EngineError struct {
	Command  string // Command line as executed
	ExitCode int    // Process exit code, or ExitUnavailable
	Stderr   string // Captured diagnostic output
	Cause    error
}

func (e *EngineError) message() string {
	if errors.Is(e.Cause, context.DeadlineExceeded) || errors.Is(e.Cause, context.Canceled) {
		return fmt.Sprintf("%s was terminated: %v", e.Command, e.Cause)
	}
	if e.ExitCode == ExitUnavailable {
		return fmt.Sprintf("could not start %s: %v", e.Command, e.Cause)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCodeRenderEngine, e.message())
}

// Unwrap returns the underlying process error.
func (e *EngineError) Unwrap() error { return e.Cause }

// ErrorCode returns [ErrCodeRenderEngine].
func (e *EngineError) ErrorCode() Code { return ErrCodeRenderEngine }
