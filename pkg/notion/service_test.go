package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pbendersky/notion-mcp-gateway/internal/testutil"
	"github.com/pbendersky/notion-mcp-gateway/pkg/client"
	"github.com/pbendersky/notion-mcp-gateway/pkg/pagination"
)

func newTestService(t *testing.T, mock *testutil.MockNotion) *Service {
	t.Helper()

	cfg := client.DefaultConfig("secret-token")
	cfg.BaseURL = mock.URL()
	cfg.Retry.BaseDelay = 1 * time.Millisecond
	cfg.Retry.JitterFraction = 0

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return NewService(c, pagination.DefaultConfig())
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"59833787-2cf9-4fdf-8782-e53db20768a5", "598337872cf94fdf8782e53db20768a5"},
		{"598337872cf94fdf8782e53db20768a5", "598337872cf94fdf8782e53db20768a5"},
		{"  abc-def  ", "abcdef"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeID(tt.input); got != tt.want {
			t.Errorf("normalizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRetrievePage(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetResponse("/pages/598337872cf94fdf8782e53db20768a5",
		testutil.OK(`{"object": "page", "id": "59833787-2cf9-4fdf-8782-e53db20768a5"}`))

	svc := newTestService(t, mock)

	// Dashed IDs are normalized before hitting the wire.
	payload, err := svc.RetrievePage(context.Background(), "59833787-2cf9-4fdf-8782-e53db20768a5")
	if err != nil {
		t.Fatalf("RetrievePage() error = %v", err)
	}

	var page struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(payload, &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Object != "page" {
		t.Errorf("object = %q, want page", page.Object)
	}
}

func TestRetrievePageEmptyID(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	svc := newTestService(t, mock)

	_, err := svc.RetrievePage(context.Background(), "  ")
	var valErr *client.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("error type = %T, want *client.ValidationError", err)
	}
	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("request count = %d, want 0", got)
	}
}

func TestQueryDatabaseWalksCursor(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetScript("/databases/db1/query",
		testutil.OK(`{"results": [{"id": "p1"}, {"id": "p2"}], "has_more": true, "next_cursor": "cur-1"}`),
		testutil.OK(`{"results": [{"id": "p3"}], "has_more": false, "next_cursor": null}`),
	)

	svc := newTestService(t, mock)

	result, err := svc.QueryDatabase(context.Background(), "db1", map[string]any{
		"property": "Status",
		"select":   map[string]any{"equals": "Done"},
	}, nil)
	if err != nil {
		t.Fatalf("QueryDatabase() error = %v", err)
	}

	if result.State != pagination.StateExhausted {
		t.Errorf("State = %q, want exhausted", result.State)
	}
	if len(result.Items) != 3 {
		t.Errorf("Items = %d, want 3", len(result.Items))
	}
	if got := mock.GetPathCount("/databases/db1/query"); got != 2 {
		t.Errorf("query requests = %d, want 2", got)
	}
}

func TestSearchPartialOnFailure(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetScript("/search",
		testutil.OK(`{"results": [{"id": "p1"}], "has_more": true, "next_cursor": "cur-1"}`),
		testutil.MockResponse{
			StatusCode: http.StatusBadRequest,
			Body:       `{"message": "bad cursor", "code": "validation_error"}`,
		},
	)

	svc := newTestService(t, mock)

	result, err := svc.Search(context.Background(), "roadmap", nil)
	if err == nil {
		t.Fatal("Search() should surface the terminal failure")
	}
	if result == nil {
		t.Fatal("partial result must be returned alongside the error")
	}
	if result.State != pagination.StateFailed {
		t.Errorf("State = %q, want failed", result.State)
	}
	if len(result.Items) != 1 {
		t.Errorf("Items = %d, want the 1 collected before the failure", len(result.Items))
	}
}

func TestRetrieveCommentsQuery(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var gotQuery string
	mock.SetHandler("/comments", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [], "has_more": false, "next_cursor": null}`))
	})

	svc := newTestService(t, mock)

	if _, err := svc.RetrieveComments(context.Background(), "block1"); err != nil {
		t.Fatalf("RetrieveComments() error = %v", err)
	}
	if gotQuery != "block_id=block1&page_size=100" {
		t.Errorf("query = %q, want block_id and clamped page_size", gotQuery)
	}
}

func TestCreateCommentBody(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var gotBody map[string]any
	mock.SetHandler("/comments", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "comment"}`))
	})

	svc := newTestService(t, mock)

	if _, err := svc.CreateComment(context.Background(), "page1", "Looks good"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	parent, _ := gotBody["parent"].(map[string]any)
	if parent["page_id"] != "page1" {
		t.Errorf("parent = %v, want page_id=page1", parent)
	}
	if _, ok := gotBody["rich_text"]; !ok {
		t.Error("body should carry rich_text")
	}
}

func TestCreatePageValidation(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	svc := newTestService(t, mock)

	tests := []struct {
		name       string
		parent     map[string]any
		properties map[string]any
	}{
		{"missing parent", nil, map[string]any{"title": "x"}},
		{"missing properties", map[string]any{"page_id": "p1"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePage(context.Background(), tt.parent, tt.properties, nil)
			var valErr *client.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("error type = %T, want *client.ValidationError", err)
			}
		})
	}
}

func TestCreatePageSplitsChildren(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var createChildren int
	mock.SetHandler("/pages", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Children []any `json:"children"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		createChildren = len(body.Children)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "page", "id": "new-page"}`))
	})

	var appendedBatches []int
	mock.SetHandler("/blocks/newpage/children", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Children []any `json:"children"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		appendedBatches = append(appendedBatches, len(body.Children))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "list", "results": []}`))
	})

	children := make([]map[string]any, 150)
	for i := range children {
		children[i] = map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []map[string]any{
					{"type": "text", "text": map[string]string{"content": fmt.Sprintf("line %d", i)}},
				},
			},
		}
	}

	svc := newTestService(t, mock)

	_, err := svc.CreatePage(context.Background(),
		map[string]any{"page_id": "parent1"},
		map[string]any{"title": map[string]any{}},
		children)
	if err != nil {
		t.Fatalf("CreatePage() error = %v", err)
	}

	// 100 blocks ride the create call, the remaining 50 follow as an append.
	if createChildren != 100 {
		t.Errorf("create carried %d children, want 100", createChildren)
	}
	if len(appendedBatches) != 1 || appendedBatches[0] != 50 {
		t.Errorf("append batches = %v, want [50]", appendedBatches)
	}
}

func TestAppendBlockChildrenBatches(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var batches []int
	mock.SetHandler("/blocks/b1/children", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Children []any `json:"children"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		batches = append(batches, len(body.Children))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "list", "results": []}`))
	})

	blocks := make([]map[string]any, 250)
	for i := range blocks {
		blocks[i] = map[string]any{"type": "paragraph"}
	}

	svc := newTestService(t, mock)

	if err := svc.AppendBlockChildren(context.Background(), "b1", blocks); err != nil {
		t.Fatalf("AppendBlockChildren() error = %v", err)
	}
	if len(batches) != 3 || batches[0] != 100 || batches[1] != 100 || batches[2] != 50 {
		t.Errorf("batches = %v, want [100 100 50]", batches)
	}
}

func TestArchivePage(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var gotBody map[string]any
	var gotMethod string
	mock.SetHandler("/pages/p1", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "page", "archived": true}`))
	})

	svc := newTestService(t, mock)

	if _, err := svc.ArchivePage(context.Background(), "p1", true); err != nil {
		t.Fatalf("ArchivePage() error = %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
	if gotBody["archived"] != true {
		t.Errorf("body = %v, want archived=true", gotBody)
	}
}

func TestDeleteBlock(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	var gotMethod string
	mock.SetHandler("/blocks/b1", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "block", "archived": true}`))
	})

	svc := newTestService(t, mock)

	if _, err := svc.DeleteBlock(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBlock() error = %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
}
