package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pbendersky/notion-mcp-gateway/internal/testutil"
)

// testConfig returns a configuration pointed at the mock server with
// near-zero backoff so retry tests run fast.
func testConfig(baseURL string) Config {
	cfg := DefaultConfig("secret-token")
	cfg.BaseURL = baseURL
	cfg.Retry.BaseDelay = 1 * time.Millisecond
	cfg.Retry.MaxDelay = 50 * time.Millisecond
	cfg.Retry.JitterFraction = 0
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("requires token", func(t *testing.T) {
		if _, err := New(Config{}); err == nil {
			t.Fatal("New() with empty token should fail")
		}
	})

	t.Run("fills defaults", func(t *testing.T) {
		c, err := New(Config{Token: "secret-token"})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.config.BaseURL != DefaultBaseURL {
			t.Errorf("BaseURL = %q, want %q", c.config.BaseURL, DefaultBaseURL)
		}
		if c.config.NotionVersion != DefaultNotionVersion {
			t.Errorf("NotionVersion = %q, want %q", c.config.NotionVersion, DefaultNotionVersion)
		}
		if c.config.Retry.MaxAttempts != 4 {
			t.Errorf("Retry.MaxAttempts = %d, want 4", c.config.Retry.MaxAttempts)
		}
	})
}

func TestDoSendsAuthHeaders(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Get(context.Background(), "/users/me", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	header := mock.LastRequestHeader
	if got := header.Get("Authorization"); got != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got := header.Get("Notion-Version"); got != DefaultNotionVersion {
		t.Errorf("Notion-Version = %q, want %q", got, DefaultNotionVersion)
	}
	if got := header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestDoClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetResponse("/pages/missing", testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message": "Could not find page", "code": "object_not_found"}`,
	})

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/pages/missing", nil)
	if err == nil {
		t.Fatal("Get() should fail on 404")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Class != ErrorClassClient {
		t.Errorf("Class = %q, want %q", apiErr.Class, ErrorClassClient)
	}
	if apiErr.Code != "object_not_found" {
		t.Errorf("Code = %q, want object_not_found", apiErr.Code)
	}
	if apiErr.Retryable() {
		t.Error("client error must not be retryable")
	}

	// A client error settles on the first attempt, no retries.
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetScript("/search",
		testutil.RateLimited(0),
		testutil.RateLimited(0),
		testutil.OK(`{"object": "list", "results": []}`),
	)

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	payload, err := c.Post(context.Background(), "/search", map[string]any{"query": "roadmap"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if !strings.Contains(string(payload), `"results"`) {
		t.Errorf("payload = %s, want final success body", payload)
	}

	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("request count = %d, want 3 (two 429s then success)", got)
	}
}

func TestDoServerErrorThenSuccess(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetScript("/users",
		testutil.MockResponse{StatusCode: http.StatusBadGateway},
		testutil.OK(`{"object": "list", "results": []}`),
	)

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Get(context.Background(), "/users", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestDoRetriesExhausted(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetResponse("/databases/x/query", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal error", "code": "internal_server_error"}`,
	})

	cfg := testConfig(mock.URL())
	cfg.Retry.MaxAttempts = 3

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Post(context.Background(), "/databases/x/query", map[string]any{})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("error = %v, want ErrRetriesExhausted", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("exhausted error should wrap *APIError, got %T", err)
	}
	if apiErr.Class != ErrorClassServer {
		t.Errorf("Class = %q, want %q", apiErr.Class, ErrorClassServer)
	}

	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("request count = %d, want MaxAttempts=3", got)
	}
}

func TestDoTransportError(t *testing.T) {
	mock := testutil.NewMockNotion()
	baseURL := mock.URL()
	mock.Close() // every attempt now fails at the dial

	cfg := testConfig(baseURL)
	cfg.Retry.MaxAttempts = 2

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/users/me", nil)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("error = %v, want ErrRetriesExhausted", err)
	}
	if got := Classify(err); got != ErrorClassTransport {
		t.Errorf("Classify() = %q, want %q", got, ErrorClassTransport)
	}
}

func TestDoValidationError(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Do(context.Background(), Request{Method: "GET", Path: "users"})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}

	// Validation failures never reach the network.
	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("request count = %d, want 0", got)
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	// Retry-After of 5s keeps the client in its backoff wait long enough
	// for the context deadline to fire.
	mock.SetResponse("/search", testutil.RateLimited(5))

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Post(ctx, "/search", map[string]any{})
	if !errors.Is(err, ErrContextCancelled) {
		t.Fatalf("error = %v, want ErrContextCancelled", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v, want prompt return", elapsed)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}

func TestGetEncodesQuery(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var gotQuery string
	mock.SetHandler("/blocks/abc/children", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "list", "results": []}`))
	})

	c, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/blocks/abc/children", map[string]string{
		"page_size":    "100",
		"start_cursor": "cur-1",
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotQuery != "page_size=100&start_cursor=cur-1" {
		t.Errorf("query = %q, want page_size=100&start_cursor=cur-1", gotQuery)
	}
}
