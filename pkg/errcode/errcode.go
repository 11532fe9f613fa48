package errcode

import (
	"errors"
	"fmt"
)

// Code is the stable numeric error code shared with foreign callers.
type Code int32

const (
	// Success indicates the operation completed.
	Success Code = 0
	// InvalidOperation covers structural host mistakes such as schema
	// mismatches or missing transform descriptors.
	InvalidOperation Code = 1
	// SerializeError covers malformed wire payloads.
	SerializeError Code = 2
	// NoEntry covers lookups of unknown identifiers.
	NoEntry Code = 3
	// PrivacyBreach indicates a discharge rule rejected an operator or the
	// sink found a non-bottom label.
	PrivacyBreach Code = 4
	// Already indicates a context or monitor is being double-initialized.
	Already Code = 5
	// FileNotFound indicates a missing input file.
	FileNotFound Code = 6
)

// String returns the code's canonical name.
func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case InvalidOperation:
		return "invalid_operation"
	case SerializeError:
		return "serialize_error"
	case NoEntry:
		return "no_entry"
	case PrivacyBreach:
		return "privacy_breach"
	case Already:
		return "already"
	case FileNotFound:
		return "file_not_found"
	default:
		return fmt.Sprintf("unknown(%d)", int32(c))
	}
}

// Error is the engine's error type. It pairs a stable code with a message
// and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an error with the given code, message, and cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf classifies an error into its stable code. A nil error is Success;
// an unclassified error is InvalidOperation.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InvalidOperation
}
