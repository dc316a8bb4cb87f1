// Package errors provides structured error types for legsim.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the solver, builder, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Kinematic failures are values, not panics: a solve either yields a full
// pose or an *Error carrying one of [ErrCodeUnreachable], [ErrCodeDegenerate]
// or [ErrCodeAttachOutOfRange]. Build failures use [ErrCodeInvalidSpec];
// [ErrCodeOrphanLink] marks non-fatal builder warnings.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnreachable, "crank: circles do not meet")
//	if errors.Is(err, errors.ErrCodeUnreachable) {
//	    // keep the last valid pose
//	}
//
//	err := errors.Wrap(errors.ErrCodeInvalidSpec, origErr, "joint %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Kinematic failures
	ErrCodeUnreachable      Code = "UNREACHABLE"
	ErrCodeDegenerate       Code = "DEGENERATE"
	ErrCodeAttachOutOfRange Code = "ATTACH_OUT_OF_RANGE"

	// Mechanism construction
	ErrCodeInvalidSpec Code = "INVALID_SPEC"
	ErrCodeOrphanLink  Code = "ORPHAN_LINK"
	ErrCodeInvalidPose Code = "INVALID_POSE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsKinematic reports whether err is one of the solver failure kinds.
func IsKinematic(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnreachable, ErrCodeDegenerate, ErrCodeAttachOutOfRange:
		return true
	}
	return false
}
