package service

import (
	"errors"
	"fmt"
)

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeAuth             = "auth_error"
	ErrCodeRemoteAPI        = "remote_api_error"
	ErrCodeTransient        = "transient_network_error"
	ErrCodeValidation       = "validation_error"
	ErrCodePersistence      = "persistence_error"
	ErrCodeWebhookSignature = "webhook_signature_error"
	ErrCodeRunFinalized     = "run_finalized"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternalError    = "internal_error"
)

// ErrorCode extracts the service error code from err, or internal_error when
// err carries none.
func ErrorCode(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ErrCodeInternalError
}
