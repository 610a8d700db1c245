package application

import (
	"time"

	"github.com/ahrav/go-factorlens/infrastructure/api"
)

// Default endpoints match a backend running locally.
const (
	DefaultAPIURL    = "http://127.0.0.1:8000"
	DefaultStreamURL = "ws://127.0.0.1:8000/ws"
)

// Environment variables that override the configured endpoints.
const (
	EnvAPIURL    = "FACTORLENS_API_URL"
	EnvStreamURL = "FACTORLENS_WS_URL"
)

// Config is the complete client configuration. It is loaded from YAML and
// validated with struct tags plus the custom validators registered by
// RegisterConfigValidators.
type Config struct {
	// API locates the job submission and explanation endpoints.
	API APIConfig `yaml:"api" validate:"required"`
	// Stream locates the job event channel.
	Stream StreamConfig `yaml:"stream" validate:"required"`
	// Explain tunes explanation fetching.
	Explain ExplainConfig `yaml:"explain"`
	// Display holds presentation preferences.
	Display DisplayConfig `yaml:"display"`
	// Logging selects the log level.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend HTTP client.
type APIConfig struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:8000.
	BaseURL string `yaml:"base_url" validate:"required,httpurl"`
	// TimeoutSeconds bounds every HTTP exchange.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=300"`
}

// StreamConfig configures the event channel.
type StreamConfig struct {
	// URL is the ws:// or wss:// endpoint.
	URL string `yaml:"url" validate:"required,wsurl"`
	// ReadLimitBytes caps a single inbound frame.
	ReadLimitBytes int64 `yaml:"read_limit_bytes" validate:"omitempty,min=1024,max=67108864"`
	// HandshakeTimeoutSeconds bounds the opening handshake.
	HandshakeTimeoutSeconds int `yaml:"handshake_timeout_seconds" validate:"omitempty,min=1,max=120"`
}

// ExplainConfig tunes the explanation fetch middleware chain.
type ExplainConfig struct {
	// TimeoutSeconds bounds each fetch attempt.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=120"`
	// Retry configures retries of transient failures.
	Retry RetryConfig `yaml:"retry"`
	// RateLimit paces fetches.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// CircuitBreaker stops fetching from a failing backend for a while.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig specifies the retry strategy for explanation fetches.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first;
	// 0 or 1 disables retries.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=10"`
	// InitialWait is the base backoff in milliseconds.
	InitialWait int `yaml:"initial_wait_ms" validate:"omitempty,min=0,max=60000"`
	// MaxWait caps the backoff in milliseconds.
	MaxWait int `yaml:"max_wait_ms" validate:"omitempty,min=0,max=300000,gtefield=InitialWait"`
}

// RateLimitConfig configures the fetch token bucket. Zero disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second" validate:"min=0,max=1000"`
	Burst     int     `yaml:"burst" validate:"min=0,max=1000"`
}

// CircuitBreakerConfig configures the fetch circuit breaker. Zero
// MaxFailures disables it.
type CircuitBreakerConfig struct {
	MaxFailures     int `yaml:"max_failures" validate:"min=0,max=100"`
	CooldownSeconds int `yaml:"cooldown_seconds" validate:"min=0,max=3600"`
}

// DisplayConfig holds presentation preferences.
type DisplayConfig struct {
	// Locale is the BCP 47 tag used to group prices.
	Locale string `yaml:"locale" validate:"omitempty,locale"`
	// Theme is the initial color theme.
	Theme string `yaml:"theme" validate:"omitempty,oneof=dark light"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a configuration that talks to a local backend.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        DefaultAPIURL,
			TimeoutSeconds: 30,
		},
		Stream: StreamConfig{
			URL:                     DefaultStreamURL,
			ReadLimitBytes:          1 << 20,
			HandshakeTimeoutSeconds: 10,
		},
		Explain: ExplainConfig{
			TimeoutSeconds: 10,
			Retry:          RetryConfig{MaxAttempts: 3, InitialWait: 200, MaxWait: 2000},
			RateLimit:      RateLimitConfig{PerSecond: 5, Burst: 5},
			CircuitBreaker: CircuitBreakerConfig{MaxFailures: 5, CooldownSeconds: 30},
		},
		Display: DisplayConfig{Locale: "en-IN", Theme: "dark"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// APITimeout returns the HTTP timeout as a duration.
func (c Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// HandshakeTimeout returns the stream handshake timeout as a duration.
func (c Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Stream.HandshakeTimeoutSeconds) * time.Second
}

// Resilience converts the explain settings into the middleware chain
// configuration.
func (c Config) Resilience() api.ResilienceConfig {
	e := c.Explain
	return api.ResilienceConfig{
		Timeout:       time.Duration(e.TimeoutSeconds) * time.Second,
		MaxRetries:    max(0, e.Retry.MaxAttempts-1),
		BaseDelay:     time.Duration(e.Retry.InitialWait) * time.Millisecond,
		MaxDelay:      time.Duration(e.Retry.MaxWait) * time.Millisecond,
		RatePerSecond: e.RateLimit.PerSecond,
		Burst:         e.RateLimit.Burst,
		MaxFailures:   e.CircuitBreaker.MaxFailures,
		Cooldown:      time.Duration(e.CircuitBreaker.CooldownSeconds) * time.Second,
		ServiceName:   "factorlens",
	}
}
