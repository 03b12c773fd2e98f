// Package errors defines the sentinel errors shared by the verifier
// components and a small wrapper that attaches a human-readable message.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownHashAlgorithm   = errors.New("unknown hash algorithm")
	ErrDuplicateHashAlgorithm = errors.New("duplicate hash algorithm")
	ErrInvalidFilterSize      = errors.New("invalid filter size")
	ErrDictionaryNotFound     = errors.New("dictionary file not found")
	ErrDictionaryRead         = errors.New("dictionary file unreadable")
	ErrMalformedRequest       = errors.New("malformed request")
	ErrUnknownAction          = errors.New("unknown action")
	ErrServerClosed           = errors.New("server closed")
	ErrNoResponse             = errors.New("connection closed without a response")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfiguration reports whether err stems from constructing a dictionary
// rather than from serving a single request.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrUnknownHashAlgorithm) ||
		errors.Is(err, ErrDuplicateHashAlgorithm) ||
		errors.Is(err, ErrInvalidFilterSize) ||
		errors.Is(err, ErrDictionaryNotFound)
}

// IsProtocol reports whether err describes a request line the server drops
// without answering.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrMalformedRequest) || errors.Is(err, ErrUnknownAction)
}
