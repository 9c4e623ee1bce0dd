// Package ratelimit implements an optional cooperative throttle for bulk
// Notion operations. The Notion API averages 3 requests per second with
// bursts allowed; single operations rely on reactive 429 backoff instead,
// so the throttle is only wired in for bulk-sync call sites.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for throttle operations.
var (
	notionThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notion_throttle_wait_seconds",
		Help:    "Time spent waiting on the shared request throttle",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})

	notionThrottleRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion_throttle_requests_total",
		Help: "Total requests that passed through the shared throttle",
	})
)

// Config holds throttle configuration.
type Config struct {
	// RequestsPerSecond is the sustained average rate.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the average.
	Burst int
}

// DefaultConfig returns the Notion nominal rate: 3 req/s average with a
// small burst allowance.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 3,
		Burst:             3,
	}
}

// Throttle is a shared token-bucket limiter. It is explicitly passed by
// reference to the clients that opt in; rate.Limiter is safe for
// concurrent use.
type Throttle struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a new throttle.
func New(cfg Config, logger zerolog.Logger) *Throttle {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	waited := time.Since(start)
	notionThrottleWaitSeconds.Observe(waited.Seconds())
	notionThrottleRequestsTotal.Inc()

	if waited > 100*time.Millisecond {
		t.logger.Debug().
			Dur("waited", waited).
			Msg("Request delayed by shared throttle")
	}
	return nil
}

// Allow reports whether a request may proceed immediately without waiting.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}
