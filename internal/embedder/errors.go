package embedder

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured means the selected provider is missing credentials or
	// an endpoint. The adapter degrades instead of failing.
	ErrNotConfigured = errors.New("embedder: provider not configured")

	// ErrMalformedResponse means the provider answered 2xx with a body that
	// could not be used.
	ErrMalformedResponse = errors.New("embedder: malformed response")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	// Provider names the backend that failed.
	Provider string
	// Code is the HTTP status code.
	Code int
	// Message is the provider's error message, or the status text.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s embedder: HTTP %d: %s", e.Provider, e.Code, e.Message)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// retryable classifies a client error. Rate limits, server errors and
// transport failures are retried; other statuses and unusable bodies are not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func statusError(provider string, code int, msg string) *StatusError {
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &StatusError{Provider: provider, Code: code, Message: msg}
}
