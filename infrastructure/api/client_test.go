package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// newBackend serves handler under both endpoints and records request bodies.
func newBackend(t *testing.T, handler func(w http.ResponseWriter, path string, item string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Item string `json:"item"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		handler(w, r.URL.Path, body.Item)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SubmitJob(t *testing.T) {
	// Given a backend that accepts the item
	srv := newBackend(t, func(w http.ResponseWriter, path, item string) {
		assert.Equal(t, QueryPath, path)
		assert.Equal(t, "gaming laptop", item)
		_, _ = w.Write([]byte(`{"job_id":"job-123"}`))
	})

	// When submitting with a trailing slash on the base URL
	client := NewClient(srv.URL + "/")
	jobID, err := client.SubmitJob(context.Background(), "gaming laptop")

	// Then the job id is returned
	require.NoError(t, err)
	assert.Equal(t, "job-123", jobID)
}

func TestClient_SubmitJobFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantIs   error
		wantType ErrorType
	}{
		{name: "server error", status: 500, body: "boom", wantMsg: "server 500", wantIs: ports.ErrServiceUnavailable, wantType: ErrorTypeServerError},
		{name: "bad request", status: 400, body: `{"detail":"Item required"}`, wantMsg: "server 400", wantIs: ports.ErrInvalidResponse, wantType: ErrorTypeBadRequest},
		{name: "rate limited", status: 429, wantMsg: "server 429", wantIs: ports.ErrRateLimited, wantType: ErrorTypeRateLimit},
		{name: "error payload", status: 200, body: `{"error":"queue full"}`, wantMsg: "queue full", wantIs: ports.ErrInvalidResponse},
		{name: "missing job id", status: 200, body: `{}`, wantMsg: "missing job_id", wantIs: ports.ErrInvalidResponse},
		{name: "empty body", status: 200, wantMsg: "missing job_id", wantIs: ports.ErrInvalidResponse},
		{name: "garbage body", status: 200, body: `<html>`, wantMsg: "decode", wantIs: ports.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newBackend(t, func(w http.ResponseWriter, _, _ string) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewClient(srv.URL).SubmitJob(context.Background(), "x")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.ErrorIs(t, err, tt.wantIs)

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				assert.Equal(t, tt.wantType, apiErr.Type)
				assert.Equal(t, tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	// Given a server that is already gone
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).SubmitJob(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "network")
	var te *ports.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "submit", te.Operation)
}

func TestClient_Explain(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, path, item string) {
		assert.Equal(t, ExplainPath, path)
		switch item {
		case "Battery":
			_, _ = w.Write([]byte(`{"explanation":"  Battery capacity sets runtime.  "}`))
		default:
			_, _ = w.Write([]byte(`{"other":"field"}`))
		}
	})
	client := NewClient(srv.URL)

	text, err := client.Explain(context.Background(), "Battery")
	require.NoError(t, err)
	assert.Equal(t, "Battery capacity sets runtime.", text)

	text, err = client.Fetch(context.Background(), "Unknown")
	require.NoError(t, err, "missing field is not an error")
	assert.Empty(t, text)
}

func TestClient_RetryAfterHeader(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, _, _ string) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := NewClient(srv.URL).Explain(context.Background(), "x")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.NotNil(t, apiErr.RetryAfter)
	assert.Equal(t, 3*time.Second, *apiErr.RetryAfter)
	assert.True(t, apiErr.IsRetryable())
}

func TestClient_ContextDeadline(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, _, _ string) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"explanation":"late"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Explain(ctx, "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrTimeout)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrorTypeTimeout, apiErr.Type)
}
