package ai

import (
	"errors"
	"fmt"
)

// ProviderError wraps any failure surfaced by a Provider. Retryable marks
// transient conditions (rate limits, upstream outages, network failures);
// content-policy rejections and malformed requests are permanent.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, kind, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError for the named provider.
func NewProviderError(provider string, retryable bool, err error) *ProviderError {
	return &ProviderError{Provider: provider, Retryable: retryable, Err: err}
}

// IsRetryable reports whether err is a provider failure worth retrying.
// Non-provider errors are not considered retryable by this helper.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}
