package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedModel is returned when a model label is not in the
	// catalog. The provider is never contacted.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrModelNotAvailable is returned for catalog models whose provider
	// gateway is not configured (catalog placeholders, missing API key).
	ErrModelNotAvailable = errors.New("model not yet available")
)

// APIError carries a provider's status and message for a failed call.
// The gateway never retries; retries, if desired, are the caller's business.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsAPIError reports whether err is (or wraps) a provider APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
