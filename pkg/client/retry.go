package client

import (
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	notionRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	notionRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	notionRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for the backoff policy.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial
	// request).
	MaxAttempts int

	// BaseDelay is the unit of the exponential schedule. The first retry
	// waits 2×BaseDelay, the second 4×, the third 8×.
	BaseDelay time.Duration

	// MaxDelay caps the exponential schedule before jitter. Zero means
	// no cap. An advertised Retry-After is never capped.
	MaxDelay time.Duration

	// JitterFraction perturbs each delay by ±delay×JitterFraction.
	JitterFraction float64
}

// DefaultRetryConfig returns the default backoff policy configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		BaseDelay:      1 * time.Second,
		MaxDelay:       60 * time.Second,
		JitterFraction: 0.2,
	}
}

// Decision is the backoff policy's verdict for a settled attempt:
// wait Delay and retry, or give up.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// decide returns the retry decision for a failed attempt.
// attempt is zero-based; success and non-retryable classes always give up.
func (c RetryConfig) decide(o outcome, attempt int) Decision {
	if o.success() || !shouldRetry(o.class) {
		return Decision{}
	}
	if attempt+1 >= c.MaxAttempts {
		return Decision{}
	}
	return Decision{Retry: true, Delay: c.delay(o, attempt)}
}

// delay computes the wait before the next attempt.
// A Retry-After value from a rate-limited response wins over the
// exponential schedule.
func (c RetryConfig) delay(o outcome, attempt int) time.Duration {
	var d time.Duration
	if o.class == ErrorClassRateLimit && o.hasRetryAfter {
		// The advertised wait is authoritative. Capping it would retry
		// early into a guaranteed 429 and burn an attempt.
		d = o.retryAfter
	} else {
		// 2^(attempt+1) × BaseDelay: 2s, 4s, 8s, ...
		d = c.BaseDelay << uint(attempt+1)
		if c.MaxDelay > 0 && d > c.MaxDelay {
			d = c.MaxDelay
		}
	}

	// Jitter: ±JitterFraction, clamped to non-negative
	jitter := float64(d) * c.JitterFraction * (2*rand.Float64() - 1)
	d += time.Duration(jitter)
	if d < 0 {
		d = 0
	}
	return d
}
