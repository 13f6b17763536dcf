package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired means there is no credential or the server
	// rejected it (401/403). Never retried.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNotFound means the server answered 404.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous means a name matched more than one board, list or card.
	ErrAmbiguous = errors.New("ambiguous reference")
)

// NetworkError is a transport-level failure: no HTTP response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response that is neither auth nor not-found.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsRetryable reports whether a failed read may be attempted again.
// Auth failures, not-found and caller cancellation are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthenticationRequired) || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
