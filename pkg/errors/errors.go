// Package errors provides structured error types for pypi2pkgbuild.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the resolver, the build driver and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure taxonomy of package resolution:
//   - NOT_FOUND: the index has no record for a name (and version)
//   - NO_SUITABLE_RELEASE: only pre-releases exist and they were not allowed
//   - NO_ARTIFACT: no distribution file survived filtering
//   - METADATA_EXTRACTION: the isolated install or the metadata read-back failed
//   - AMBIGUOUS_SYSTEM_NAME: several repository packages claim the distribution
//   - CONFLICTING_INSTALLED_PACKAGE: a stale "-git" package blocks packaging
//   - UNSUPPORTED_REFERENCE: a pinned VCS revision was requested
//   - CYCLIC_DEPENDENCY: a distribution was re-entered while being resolved
//
// All of them abort the current resolution branch only; the driver decides
// whether sibling roots continue.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "package %s not found", name)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing package
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMetadata, origErr, "failed to obtain metadata for %s", name)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resolution errors
	ErrCodeNotFound             Code = "NOT_FOUND"
	ErrCodeNoSuitableRelease    Code = "NO_SUITABLE_RELEASE"
	ErrCodeNoArtifact           Code = "NO_ARTIFACT"
	ErrCodeMetadata             Code = "METADATA_EXTRACTION"
	ErrCodeAmbiguousSystemName  Code = "AMBIGUOUS_SYSTEM_NAME"
	ErrCodeConflictingInstalled Code = "CONFLICTING_INSTALLED_PACKAGE"
	ErrCodeUnsupportedReference Code = "UNSUPPORTED_REFERENCE"
	ErrCodeCyclicDependency     Code = "CYCLIC_DEPENDENCY"

	// Build errors
	ErrCodeBuildFailed  Code = "BUILD_FAILED"
	ErrCodeOutputExists Code = "OUTPUT_EXISTS"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It walks the whole error chain, so a code attached below a wrapping
// *Error with a different code is still found.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
// Joined errors give one line per error. For other errors, returns the
// error string as-is.
func UserMessage(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, UserMessage(e))
		}
		return strings.Join(lines, "\n")
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
