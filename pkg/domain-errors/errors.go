// Package domainerrors provides code-bearing errors shared across services.
//
// Services attach a Code to every failure they surface; the HTTP layer maps
// codes to status values and decides which messages are safe to return to
// callers. Wrapping preserves the original error for logs while the caller
// only ever sees the code and message.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input. The message
	// should list every violated rule so the caller can fix them in one pass.
	CodeValidation Code = "validation"

	// CodeBadRequest marks a request that is syntactically broken
	// (unparseable body, missing required field).
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a lookup for an id that does not exist.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized marks a missing, expired, or revoked session.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated caller lacking a required
	// permission.
	CodeForbidden Code = "forbidden"

	// CodeConflict marks a resource-level rejection such as insufficient
	// stock or insufficient payment.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks an illegal state transition, e.g.
	// completing a voided transaction.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal marks unexpected faults. Details are logged, never
	// returned to the caller.
	CodeInternal Code = "internal_error"
)

// Error is the concrete error type carried between layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given code and caller-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The underlying
// error is preserved for errors.Is / errors.As and for logging.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or any error it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		de = nil
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// has no domain code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost caller-safe message, or an empty string
// when err has no domain code.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
