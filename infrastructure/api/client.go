// Package api talks to the analysis backend over HTTP: it submits items as
// jobs and fetches factor explanations. Explanation fetches run through a
// middleware chain that adds timeouts, retries, rate limiting, circuit
// breaking, metrics and tracing.
//
// Basic usage:
//
//	client := api.NewClient("http://127.0.0.1:8000")
//	jobID, err := client.SubmitJob(ctx, "gaming laptop")
//
// Explanations with middleware:
//
//	fetcher := api.NewExplainFetcher(client,
//	    api.TimeoutMiddleware(5*time.Second),
//	    api.RetryMiddleware(2, 200*time.Millisecond, 2*time.Second),
//	)
//	text, err := fetcher.FetchExplanation(ctx, "Battery")
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// Endpoint paths relative to the base URL.
const (
	QueryPath   = "/api/query"
	ExplainPath = "/api/explain"
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 512

// Compile-time interface checks.
var (
	_ ports.JobSubmitter = (*Client)(nil)
	_ CoreFetcher        = (*Client)(nil)
)

// Client is the HTTP client for the analysis backend. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	classifier ErrorClassifier
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the overall timeout of each HTTP exchange.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the backend at baseURL. A trailing slash
// on baseURL is ignored.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryRequest struct {
	Item string `json:"item"`
}

type queryResponse struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

type explainRequest struct {
	Item string `json:"item"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// SubmitJob starts an analysis of item and returns its job identifier.
//
// A non-2xx answer yields an *APIError whose message starts with
// "server <status>". A network failure yields a *ports.TransportError whose
// message contains "network". A 2xx answer carrying an "error" field or no
// job id yields an error wrapping ports.ErrInvalidResponse.
func (c *Client) SubmitJob(ctx context.Context, item string) (string, error) {
	var resp queryResponse
	if err := c.post(ctx, QueryPath, queryRequest{Item: item}, &resp); err != nil {
		c.logger.Warn("job submission failed", zap.String("item", item), zap.Error(err))
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ports.ErrInvalidResponse, resp.Error)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%w: missing job_id", ports.ErrInvalidResponse)
	}
	c.logger.Debug("job submitted", zap.String("item", item), zap.String("job_id", resp.JobID))
	return resp.JobID, nil
}

// Explain fetches the explanation text for a factor name. A response
// without an explanation field yields "" and a nil error.
func (c *Client) Explain(ctx context.Context, item string) (string, error) {
	var resp explainResponse
	if err := c.post(ctx, ExplainPath, explainRequest{Item: item}, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Explanation), nil
}

// Fetch implements CoreFetcher.
func (c *Client) Fetch(ctx context.Context, item string) (string, error) {
	return c.Explain(ctx, item)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	url := c.baseURL + path

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return c.classifier.ClassifyContextError(path, ctxErr)
		}
		return ports.NewTransportError(url, operationFor(path), fmt.Errorf("network: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		apiErr := c.classifier.ClassifyHTTPError(path, res.StatusCode, strings.TrimSpace(string(raw)))
		apiErr.RetryAfter = parseRetryAfter(res.Header.Get("Retry-After"), c.now())
		return apiErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decode %s: %v", ports.ErrInvalidResponse, path, err)
	}
	return nil
}

func operationFor(path string) string {
	switch path {
	case QueryPath:
		return "submit"
	case ExplainPath:
		return "explain"
	default:
		return "post"
	}
}
