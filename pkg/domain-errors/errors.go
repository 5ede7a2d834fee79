// Package domainerrors defines the coded error type every layer of the
// service speaks. Services attach a Code so transports can render a precise
// {kind, message} envelope instead of a generic failure; callers branch on
// HasCode, never on message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error kind carried over the wire.
type Code string

// Lifecycle error kinds. These are recoverable-by-caller: the caller can
// re-request with corrected input or role.
const (
	CodeNotFound           Code = "not_found"
	CodeCaseClosed         Code = "case_closed"
	CodeNotAuthorized      Code = "not_authorized"
	CodeNoActiveAssignment Code = "no_active_assignment"
	CodeNotAssignedOfficer Code = "not_assigned_officer"
	CodeNoPendingRequest   Code = "no_pending_request"
	CodeReasonRequired     Code = "reason_required"
	CodeEmptyNote          Code = "empty_note"
	CodeOfficerNotFound    Code = "officer_not_found"
)

// Ambient error kinds shared with transport and infrastructure layers.
const (
	CodeValidation         Code = "validation"
	CodeBadRequest         Code = "bad_request"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal"
	CodeUnavailable        Code = "unavailable"
	CodeTimeout            Code = "timeout"
)

// Error is a coded error. Use New/Wrap rather than constructing directly.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from an error chain, defaulting to CodeInternal
// for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message, falling back to a generic
// one so internal details never leak to the wire.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
