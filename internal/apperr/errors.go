package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category carried by every API error.
type Kind string

const (
	KindInvalidImage    Kind = "InvalidImage"
	KindOCRFailure      Kind = "OcrFailure"
	KindValidation      Kind = "ValidationError"
	KindNotFound        Kind = "NotFound"
	KindUpstreamFailure Kind = "UpstreamFailure"
	KindTimeout         Kind = "Timeout"
	KindInternal        Kind = "Internal"
)

// Error pairs a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around cause. A nil cause yields a plain Error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func InvalidImage(message string, cause error) *Error {
	return Wrap(KindInvalidImage, message, cause)
}

func OCRFailure(message string, cause error) *Error {
	return Wrap(KindOCRFailure, message, cause)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Upstream(message string, cause error) *Error {
	return Wrap(KindUpstreamFailure, message, cause)
}

func Timeout(message string, cause error) *Error {
	return Wrap(KindTimeout, message, cause)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the message of the first *Error in err's chain. Errors
// outside the taxonomy get a generic message so internals are not leaked.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
