package processor

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the processor. Client errors other
// than 429 are never retried.
type APIError struct {
	Body       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor API error: status %d: %s", e.StatusCode, e.Body)
}

// TransientError is a network-level failure that was retried up to the
// configured attempt budget before being surfaced.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient network error: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retriable network-level failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
