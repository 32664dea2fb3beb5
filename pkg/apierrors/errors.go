package apierrors

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited   = errors.New("rate limited by API")
	ErrInvalidJSON   = errors.New("invalid JSON response")
	ErrScanNotReady  = errors.New("scan not ready")
	ErrScanFailed    = errors.New("scan failed")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingHost   = errors.New("host is required")
	ErrMissingIP     = errors.New("ip is required")
	ErrNotConfigured = errors.New("discord client not configured")
)

// APIError describes a failed call against one of the SSL Labs endpoints.
type APIError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("endpoint %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("endpoint %s failed: %v", e.Endpoint, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func NewAPIError(endpoint string, statusCode int, err error) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Err:        err,
	}
}

type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
