// Package domainerrors provides coded errors for the service layer. Stores
// and infrastructure return sentinel errors (pkg/platform/sentinel); services
// translate those facts into coded errors that transports can map to status
// codes without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput marks a precondition violation on caller-supplied
	// values (zero amount, undersized investment, nothing to claim).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a malformed request body or parameter.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a missing entity or out-of-range index.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state conflict: terms already accepted, a
	// distribution already claimed.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks a missing or invalid caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodePermissionDenied marks a caller lacking a capability or a
	// compliance flag required by the operation.
	CodePermissionDenied Code = "permission_denied"
	// CodeUnavailable marks an instrument that is paused or inactive.
	CodeUnavailable Code = "unavailable"
	// CodeInvariantViolation marks an operation that would break an
	// accounting invariant; never clamped, always surfaced.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeExternalFailure marks a rejected payment-asset transfer. The
	// enclosing operation is rolled back; the caller may resubmit.
	CodeExternalFailure Code = "external_failure"
	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. The wrapped cause, when present, is
// reachable through errors.Is/As.
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

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// is not a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
