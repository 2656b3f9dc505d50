package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure anywhere in the feed pipeline.
type ErrorKind string

const (
	KindMissingCredentials ErrorKind = "missing_credentials"
	KindConnectionError    ErrorKind = "connection_error"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindEmailNotMapped     ErrorKind = "email_not_mapped"
	KindEmailMissing       ErrorKind = "email_missing"
	KindEmailInvalid       ErrorKind = "email_invalid"
	KindAPIError           ErrorKind = "api_error"
	KindUnknownError       ErrorKind = "unknown_error"
)

// Error is a classified failure. Message is safe to show to an administrator.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError builds a classified error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, or "" if err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the administrator-facing message of a classified error,
// falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
