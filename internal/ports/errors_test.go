package ports

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestTransportError tests the functionality of the TransportError error type.
// It covers error creation, message formatting, and retryable logic.
func TestTransportError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewTransportError("ws://localhost/ws", "dial", ErrServiceUnavailable)

		assert.Equal(t, "transport error: operation=dial, endpoint=ws://localhost/ws, err=service unavailable", err.Error())
		assert.Equal(t, "dial", err.Operation)
		assert.True(t, errors.Is(err, ErrServiceUnavailable))
		assert.True(t, errors.Is(err, ErrTransport), "every transport error matches ErrTransport")
	})

	t.Run("matches ErrTransport when wrapped", func(t *testing.T) {
		err := fmt.Errorf("session: %w", NewTransportError("x", "read", errors.New("eof")))

		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("with retry after", func(t *testing.T) {
		retryAfter := 30 * time.Second
		err := &TransportError{
			Endpoint:   "http://api",
			Operation:  "explain",
			Err:        ErrRateLimited,
			RetryAfter: &retryAfter,
		}

		assert.Contains(t, err.Error(), "retry_after=30s")
	})

	t.Run("retryable errors", func(t *testing.T) {
		retryableErrors := []error{
			ErrRateLimited,
			ErrServiceUnavailable,
			ErrTimeout,
		}

		for _, baseErr := range retryableErrors {
			err := NewTransportError("x", "Test", baseErr)
			assert.True(t, err.IsRetryable(), "%v should be retryable", baseErr)
		}

		nonRetryableErrors := []error{
			ErrInvalidResponse,
			ErrConfigNotFound,
			errors.New("boom"),
		}

		for _, baseErr := range nonRetryableErrors {
			err := NewTransportError("x", "Test", baseErr)
			assert.False(t, err.IsRetryable(), "%v should not be retryable", baseErr)
		}
	})
}

// TestConfigError verifies the ConfigError message and unwrapping.
func TestConfigError(t *testing.T) {
	err := NewConfigError("stream.url", ErrConfigNotFound)

	assert.Equal(t, "config error: key=stream.url, err=configuration not found", err.Error())
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
