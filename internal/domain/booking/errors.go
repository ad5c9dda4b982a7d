package booking

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code returned to callers.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInvalidOTP        Code = "INVALID_OTP"
	CodeOTPExpired        Code = "OTP_EXPIRED"
	CodeConflict          Code = "CONFLICT"
	CodeUnavailable       Code = "UNAVAILABLE"
)

// Error is the typed error every lifecycle operation returns.
type Error struct {
	Code    Code
	Message string

	// From and To are set for INVALID_TRANSITION.
	From Status
	To   Status

	// Err is the underlying infrastructure failure for UNAVAILABLE.
	Err error
}

var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "booking not found"}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "not authorized for this booking"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidOTP        = &Error{Code: CodeInvalidOTP, Message: "invalid OTP"}
	ErrOTPExpired        = &Error{Code: CodeOTPExpired, Message: "OTP expired"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "could not allocate unique booking identifiers"}
	ErrUnavailable       = &Error{Code: CodeUnavailable, Message: "booking store unavailable"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrOTPExpired) works
// for values built by the constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// InvalidTransition names the current and requested status.
func InvalidTransition(from, to Status) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move booking from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

// InvalidArgument reports malformed input.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps an infrastructure failure (storage, broker, context).
func Unavailable(err error) *Error {
	return &Error{Code: CodeUnavailable, Message: ErrUnavailable.Message, Err: err}
}

// AsError returns err as a typed *Error. Anything that is not already a domain
// error is treated as an infrastructure failure.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var derr *Error
	if errors.As(err, &derr) {
		return derr
	}
	return Unavailable(err)
}

// CodeOf returns the code carried by err, or "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}
