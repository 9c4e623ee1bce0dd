// Package testutil provides testing utilities for the Notion gateway.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock Notion response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockNotion is a configurable mock Notion API server for testing.
type MockNotion struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	scripts  map[string][]MockResponse

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockNotion creates a new mock Notion server.
func NewMockNotion() *MockNotion {
	mock := &MockNotion{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		scripts:    make(map[string][]MockResponse),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()

		// A script pops one response per request until exhausted
		if script, ok := mock.scripts[r.URL.Path]; ok && len(script) > 0 {
			resp := script[0]
			mock.scripts[r.URL.Path] = script[1:]
			mock.mu.Unlock()
			writeResponse(w, resp)
			return
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockNotion) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNotion) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and scripted responses.
func (m *MockNotion) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
	m.scripts = make(map[string][]MockResponse)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNotion) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockNotion) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetScript configures a sequence of responses for a path, consumed one
// per request. Used to simulate 429s followed by success.
func (m *MockNotion) SetScript(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = responses
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNotion) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to one path.
func (m *MockNotion) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// defaultHandler returns an empty success body.
func (m *MockNotion) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{}`))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// RateLimited builds a 429 response with an optional Retry-After value
// in seconds. Pass a negative value to omit the header.
func RateLimited(retryAfterSeconds int) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Rate limited", "code": "rate_limited"}`,
	}
	if retryAfterSeconds >= 0 {
		resp.Headers = map[string]string{"Retry-After": strconv.Itoa(retryAfterSeconds)}
	}
	return resp
}

// OK builds a 200 response with the given JSON body.
func OK(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}
