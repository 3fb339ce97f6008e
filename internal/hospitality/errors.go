package hospitality

import (
	"errors"
	"fmt"
)

// Code identifies a workflow failure so callers can branch without
// string-matching messages.
type Code string

const (
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeProfileNotFound    Code = "PROFILE_NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeMissingHostel      Code = "MISSING_HOSTEL"
	CodeNoHostelAssigned   Code = "NO_HOSTEL_ASSIGNED"
	CodeHostelFull         Code = "HOSTEL_FULL"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodePaymentNotVerified Code = "PAYMENT_NOT_VERIFIED"
	CodeWrongAccommodation Code = "WRONG_ACCOMMODATION_TYPE"
	CodeAlreadyCheckedIn   Code = "ALREADY_CHECKED_IN"
	CodeNoActiveCheckIn    Code = "NO_ACTIVE_CHECK_IN"
)

// Error is the only error type workflow operations return.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code, or "" for nil / foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
