package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is returned when the completion service answers with a
// non-2xx status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: non-2xx status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying: rate limits,
// request timeouts and server-side errors. Credential and request errors
// (401, 403, 400, ...) are permanent.
func (e *ProviderError) Transient() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err wraps a transient *ProviderError.
func IsTransient(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient()
	}
	return false
}
