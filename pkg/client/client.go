// Package client provides the core Notion HTTP client with retry/backoff,
// rate-limit handling, and optional response caching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pbendersky/notion-mcp-gateway/pkg/cache"
	"github.com/pbendersky/notion-mcp-gateway/pkg/logging"
	"github.com/pbendersky/notion-mcp-gateway/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Default upstream contract values.
const (
	DefaultBaseURL       = "https://api.notion.com/v1"
	DefaultNotionVersion = "2022-06-28"
	DefaultTimeout       = 30 * time.Second
)

// Prometheus metrics for request operations.
var (
	notionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_requests_total",
		Help: "Total Notion API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	notionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_request_duration_seconds",
		Help:    "Notion API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	notionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_errors_total",
		Help: "Total Notion API errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// Token is the Notion integration bearer credential. Never logged.
	Token string

	// BaseURL is the API base, overridable for testing.
	BaseURL string

	// NotionVersion is the fixed API version header value.
	NotionVersion string

	// Timeout bounds each individual attempt, independent of the
	// retry budget.
	Timeout time.Duration

	// Retry is the backoff policy configuration.
	Retry RetryConfig

	// Cache is an optional Redis-backed response cache for GET requests.
	Cache *cache.Manager

	// Throttle is an optional shared token-bucket limiter for bulk
	// operations. Single operations rely on reactive backoff alone.
	Throttle *ratelimit.Throttle
}

// DefaultConfig returns a safe default configuration for the given token.
func DefaultConfig(token string) Config {
	return Config{
		Token:         token,
		BaseURL:       DefaultBaseURL,
		NotionVersion: DefaultNotionVersion,
		Timeout:       DefaultTimeout,
		Retry:         DefaultRetryConfig(),
	}
}

// Client is the Notion API client. It is safe for concurrent use from
// independent callers; each call owns its own retry state.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new Notion client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.NotionVersion == "" {
		cfg.NotionVersion = DefaultNotionVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("notion-client"),
	}, nil
}

// Do performs one logical API call: validate, throttle, consult the cache,
// then execute attempts through the backoff policy until settled.
// On success the parsed JSON body is returned verbatim.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	endpoint := req.Path
	startTime := time.Now()
	defer func() {
		notionRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var bodyBytes []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("marshal body: %v", err)}
		}
		bodyBytes = data
	}

	if c.config.Throttle != nil {
		if err := c.config.Throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}

	cacheable := req.Method == http.MethodGet && c.config.Cache != nil
	cacheKey := cache.Key{Path: req.Path, Query: req.Query}

	if cacheable {
		entry, err := c.config.Cache.Get(ctx, cacheKey)
		if err == nil {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Cache hit")
			notionRequestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return entry.Data, nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	payload, err := c.execute(ctx, req, bodyBytes)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := c.config.Cache.Set(ctx, cacheKey, cache.NewEntry(payload, http.StatusOK)); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		}
	}

	// A successful write may invalidate cached reads under the same prefix
	if req.Method != http.MethodGet && !req.ReadOnly && c.config.Cache != nil {
		if err := c.config.Cache.InvalidatePrefix(ctx, req.Path); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache invalidation failed")
		}
	}

	return payload, nil
}

// execute drives the attempt loop through the backoff policy.
func (c *Client) execute(ctx context.Context, req Request, bodyBytes []byte) (json.RawMessage, error) {
	endpoint := req.Path

	for attempt := 0; ; attempt++ {
		o := c.attempt(ctx, req, bodyBytes)

		if o.success() {
			notionRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", o.status)).Inc()
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return o.payload, nil
		}

		notionErrorsTotal.WithLabelValues(string(o.class)).Inc()
		if o.status > 0 {
			notionRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", o.status)).Inc()
		} else {
			notionRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		}

		c.logger.Warn().
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Int("status", o.status).
			Str("error_class", string(o.class)).
			Int("attempt", attempt+1).
			Msg("Notion request error")

		decision := c.config.Retry.decide(o, attempt)
		if !decision.Retry {
			if shouldRetry(o.class) {
				// Retryable failure with the budget exhausted
				notionRetryExhaustedTotal.WithLabelValues(string(o.class)).Inc()
				return nil, fmt.Errorf("%w after %d attempts: %w",
					ErrRetriesExhausted, attempt+1, o.apiError())
			}
			return nil, o.apiError()
		}

		notionRetriesTotal.WithLabelValues(string(o.class)).Inc()
		notionRetryBackoffSeconds.WithLabelValues(string(o.class)).Observe(decision.Delay.Seconds())

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("error_class", string(o.class)).
			Int("attempt", attempt+1).
			Dur("backoff", decision.Delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(decision.Delay):
		}
	}
}

// attempt performs exactly one network call and classifies the response.
// It never retries and never panics on classified cases.
func (c *Client) attempt(ctx context.Context, req Request, bodyBytes []byte) outcome {
	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.url(c.config.BaseURL), bodyReader)
	if err != nil {
		return transportOutcome(err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	httpReq.Header.Set("Notion-Version", c.config.NotionVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportOutcome(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportOutcome(err)
	}

	return classifyResponse(resp.StatusCode, resp.Header, body)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (json.RawMessage, error) {
	req := Request{Method: http.MethodGet, Path: path}
	if len(query) > 0 {
		req.Query = make(map[string][]string, len(query))
		for k, v := range query {
			req.Query.Set(k, v)
		}
	}
	return c.Do(ctx, req)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
