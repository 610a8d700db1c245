package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// ErrorType represents the category of a backend failure. It drives
// retry decisions and the user-visible message.
type ErrorType int

const (
	// ErrorTypeUnknown indicates an error of an undetermined category.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuthentication indicates the backend refused the caller.
	ErrorTypeAuthentication
	// ErrorTypeRateLimit indicates that a rate limit has been exceeded.
	ErrorTypeRateLimit
	// ErrorTypeBadRequest indicates a malformed request, such as an empty item.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates an unknown endpoint or job.
	ErrorTypeNotFound
	// ErrorTypeServerError indicates a problem on the backend's end.
	ErrorTypeServerError
	// ErrorTypeTimeout indicates that the request timed out.
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// APIError is a classified non-2xx answer from the backend.
type APIError struct {
	// Type classifies the error into a standard category.
	Type ErrorType
	// Endpoint is the path that was called.
	Endpoint string
	// StatusCode holds the HTTP status code, or 0 for context failures.
	StatusCode int
	// Message is the response body or a short description.
	Message string
	// RetryAfter is the server-suggested wait, if one was sent.
	RetryAfter *time.Duration
	// WrappedError is the ports sentinel matching Type.
	WrappedError error
}

// Error renders the failure the way it is shown to users: "server <status>"
// followed by the backend's message, if any.
func (e *APIError) Error() string {
	base := "server error"
	if e.StatusCode > 0 {
		base = fmt.Sprintf("server %d", e.StatusCode)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	return base
}

// Unwrap returns the ports sentinel, so callers can match with errors.Is.
func (e *APIError) Unwrap() error { return e.WrappedError }

// IsRetryable reports whether the request may succeed if sent again.
func (e *APIError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// ErrorClassifier standardizes backend responses into APIError values.
type ErrorClassifier struct{}

// ClassifyHTTPError classifies a response by status code.
func (ErrorClassifier) ClassifyHTTPError(endpoint string, statusCode int, message string) *APIError {
	e := &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		e.Type = ErrorTypeAuthentication
		e.WrappedError = ports.ErrInvalidResponse
	case statusCode == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
		e.WrappedError = ports.ErrRateLimited
	case statusCode == http.StatusNotFound:
		e.Type = ErrorTypeNotFound
		e.WrappedError = ports.ErrInvalidResponse
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		e.Type = ErrorTypeTimeout
		e.WrappedError = ports.ErrTimeout
	case statusCode >= 500:
		e.Type = ErrorTypeServerError
		e.WrappedError = ports.ErrServiceUnavailable
	case statusCode >= 400:
		e.Type = ErrorTypeBadRequest
		e.WrappedError = ports.ErrInvalidResponse
	default:
		e.Type = ErrorTypeUnknown
		e.WrappedError = ports.ErrInvalidResponse
	}
	return e
}

// ClassifyContextError turns a context failure into an APIError.
func (ErrorClassifier) ClassifyContextError(endpoint string, err error) *APIError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Type: ErrorTypeTimeout, Endpoint: endpoint, Message: "deadline exceeded", WrappedError: ports.ErrTimeout}
	default:
		return &APIError{Type: ErrorTypeUnknown, Endpoint: endpoint, Message: err.Error(), WrappedError: err}
	}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(h string, now time.Time) *time.Duration {
	if h == "" {
		return nil
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(h); err == nil {
		d := max(0, t.Sub(now))
		return &d
	}
	return nil
}
