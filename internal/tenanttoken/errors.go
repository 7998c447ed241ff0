package tenanttoken

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned by New when the app id or app secret is empty.
	ErrMissingCredentials = errors.New("tenanttoken: missing app credentials")

	// ErrTransport marks network-level failures reaching the token endpoint.
	// Callers may retry with backoff.
	ErrTransport = errors.New("tenanttoken: transport failure")

	// ErrMalformedResponse marks a successful HTTP exchange whose body does not
	// carry a usable token and expiry.
	ErrMalformedResponse = errors.New("tenanttoken: malformed token response")
)

// RejectionError reports that the token endpoint refused the credentials.
// It is not retryable without operator intervention.
type RejectionError struct {
	Code    int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("tenanttoken: credentials rejected: %s (code: %d)", e.Message, e.Code)
}

// Retryable reports whether err is a transient token acquisition failure.
// Rejections and missing credentials need operator action and are never retryable.
func Retryable(err error) bool {
	var rejection *RejectionError
	switch {
	case err == nil:
		return false
	case errors.As(err, &rejection), errors.Is(err, ErrMissingCredentials):
		return false
	case errors.Is(err, ErrTransport), errors.Is(err, ErrMalformedResponse):
		return true
	default:
		return false
	}
}
