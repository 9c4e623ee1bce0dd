// Package cache provides an optional Redis-backed response cache for
// Notion GET endpoints. Notion sends no cache-control or ETag headers,
// so entries carry a configured TTL and mutating requests invalidate
// cached reads under the same path prefix.
package cache

import (
	"time"
)

// Entry represents a cached Notion response.
type Entry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates a cache entry for a successful response body.
func NewEntry(data []byte, statusCode int) *Entry {
	return &Entry{
		Data:       data,
		StatusCode: statusCode,
		CachedAt:   time.Now(),
	}
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
