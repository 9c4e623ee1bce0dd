// Package notion exposes typed Notion operations on top of the resilient
// client: one function per logical API operation, with cursor walks for
// every list-shaped endpoint.
package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pbendersky/notion-mcp-gateway/pkg/client"
	"github.com/pbendersky/notion-mcp-gateway/pkg/logging"
	"github.com/pbendersky/notion-mcp-gateway/pkg/pagination"
	"github.com/rs/zerolog"
)

// blockBatchSize is the upstream limit on children per append request.
const blockBatchSize = 100

// Service provides the Notion operation surface consumed by the tool layer.
type Service struct {
	client *client.Client
	pages  pagination.Config
	logger zerolog.Logger
}

// NewService creates a service around a configured client.
func NewService(c *client.Client, pages pagination.Config) *Service {
	if pages.PageSize <= 0 {
		pages = pagination.DefaultConfig()
	}
	return &Service{
		client: c,
		pages:  pages,
		logger: logging.NewLogger("notion-service"),
	}
}

// normalizeID strips dashes so IDs copied from URLs and from the API
// address the same object.
func normalizeID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}

func requireID(name, id string) (string, error) {
	id = normalizeID(id)
	if id == "" {
		return "", &client.ValidationError{Reason: name + " is required"}
	}
	return id, nil
}

// RetrievePage fetches a page object by ID.
func (s *Service) RetrievePage(ctx context.Context, pageID string) (json.RawMessage, error) {
	id, err := requireID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	return s.client.Get(ctx, "/pages/"+id, nil)
}

// RetrieveDatabase fetches a database object by ID.
func (s *Service) RetrieveDatabase(ctx context.Context, databaseID string) (json.RawMessage, error) {
	id, err := requireID("database_id", databaseID)
	if err != nil {
		return nil, err
	}
	return s.client.Get(ctx, "/databases/"+id, nil)
}

// RetrieveUser fetches a user object by ID.
func (s *Service) RetrieveUser(ctx context.Context, userID string) (json.RawMessage, error) {
	id, err := requireID("user_id", userID)
	if err != nil {
		return nil, err
	}
	return s.client.Get(ctx, "/users/"+id, nil)
}

// QueryDatabase collects all pages matching the filter, in server order.
// The query endpoint carries its cursor in the request body.
func (s *Service) QueryDatabase(ctx context.Context, databaseID string, filter, sorts any) (*pagination.Result, error) {
	id, err := requireID("database_id", databaseID)
	if err != nil {
		return nil, err
	}

	return pagination.Walk(ctx, s.client, func(cursor string, pageSize int) client.Request {
		body := map[string]any{"page_size": pageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		if filter != nil {
			body["filter"] = filter
		}
		if sorts != nil {
			body["sorts"] = sorts
		}
		return client.Request{Method: http.MethodPost, Path: "/databases/" + id + "/query", Body: body, ReadOnly: true}
	}, s.pages)
}

// Search collects every page and database matching the query text.
func (s *Service) Search(ctx context.Context, query string, filter any) (*pagination.Result, error) {
	return pagination.Walk(ctx, s.client, func(cursor string, pageSize int) client.Request {
		body := map[string]any{"page_size": pageSize}
		if query != "" {
			body["query"] = query
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		if filter != nil {
			body["filter"] = filter
		}
		return client.Request{Method: http.MethodPost, Path: "/search", Body: body, ReadOnly: true}
	}, s.pages)
}

// RetrieveBlockChildren collects the immediate children of a block or page.
func (s *Service) RetrieveBlockChildren(ctx context.Context, blockID string) (*pagination.Result, error) {
	id, err := requireID("block_id", blockID)
	if err != nil {
		return nil, err
	}

	return pagination.Walk(ctx, s.client, func(cursor string, pageSize int) client.Request {
		q := url.Values{"page_size": {strconv.Itoa(pageSize)}}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		return client.Request{Method: http.MethodGet, Path: "/blocks/" + id + "/children", Query: q}
	}, s.pages)
}

// ListUsers collects all users in the workspace.
func (s *Service) ListUsers(ctx context.Context) (*pagination.Result, error) {
	return pagination.Walk(ctx, s.client, func(cursor string, pageSize int) client.Request {
		q := url.Values{"page_size": {strconv.Itoa(pageSize)}}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		return client.Request{Method: http.MethodGet, Path: "/users", Query: q}
	}, s.pages)
}

// RetrieveComments collects all comments on a page or block.
func (s *Service) RetrieveComments(ctx context.Context, blockID string) (*pagination.Result, error) {
	id, err := requireID("block_id", blockID)
	if err != nil {
		return nil, err
	}

	return pagination.Walk(ctx, s.client, func(cursor string, pageSize int) client.Request {
		q := url.Values{
			"block_id":  {id},
			"page_size": {strconv.Itoa(pageSize)},
		}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		return client.Request{Method: http.MethodGet, Path: "/comments", Query: q}
	}, s.pages)
}

// CreateComment adds a comment to a page.
func (s *Service) CreateComment(ctx context.Context, pageID, text string) (json.RawMessage, error) {
	id, err := requireID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, &client.ValidationError{Reason: "comment text is required"}
	}

	body := map[string]any{
		"parent": map[string]any{"page_id": id},
		"rich_text": []map[string]any{
			{"type": "text", "text": map[string]string{"content": text}},
		},
	}
	return s.client.Post(ctx, "/comments", body)
}

// CreatePage creates a page under a page or database parent.
func (s *Service) CreatePage(ctx context.Context, parent map[string]any, properties map[string]any, children []map[string]any) (json.RawMessage, error) {
	if len(parent) == 0 {
		return nil, &client.ValidationError{Reason: "parent is required"}
	}
	if len(properties) == 0 {
		return nil, &client.ValidationError{Reason: "properties are required"}
	}

	body := map[string]any{
		"parent":     parent,
		"properties": properties,
	}
	if len(children) > 0 {
		// Only the first batch may travel with the create call
		first := children
		if len(first) > blockBatchSize {
			first = children[:blockBatchSize]
		}
		body["children"] = first
	}

	page, err := s.client.Post(ctx, "/pages", body)
	if err != nil {
		return nil, err
	}

	if len(children) > blockBatchSize {
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(page, &created); err != nil {
			return page, nil
		}
		if err := s.AppendBlockChildren(ctx, created.ID, children[blockBatchSize:]); err != nil {
			return page, err
		}
	}
	return page, nil
}

// UpdatePage patches page properties.
func (s *Service) UpdatePage(ctx context.Context, pageID string, properties map[string]any) (json.RawMessage, error) {
	id, err := requireID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, &client.ValidationError{Reason: "properties are required"}
	}
	return s.client.Patch(ctx, "/pages/"+id, map[string]any{"properties": properties})
}

// ArchivePage moves a page to the trash (archived=true) or restores it.
func (s *Service) ArchivePage(ctx context.Context, pageID string, archived bool) (json.RawMessage, error) {
	id, err := requireID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	return s.client.Patch(ctx, "/pages/"+id, map[string]any{"archived": archived})
}

// AppendBlockChildren appends blocks in batches of at most 100 per request,
// the upstream limit per call.
func (s *Service) AppendBlockChildren(ctx context.Context, blockID string, blocks []map[string]any) error {
	id, err := requireID("block_id", blockID)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return &client.ValidationError{Reason: "blocks are required"}
	}

	totalBatches := (len(blocks) + blockBatchSize - 1) / blockBatchSize
	for i := 0; i < len(blocks); i += blockBatchSize {
		end := i + blockBatchSize
		if end > len(blocks) {
			end = len(blocks)
		}

		s.logger.Debug().
			Str("block_id", id).
			Int("batch", i/blockBatchSize+1).
			Int("batches", totalBatches).
			Int("blocks", end-i).
			Msg("Appending block batch")

		if _, err := s.client.Patch(ctx, "/blocks/"+id+"/children", map[string]any{
			"children": blocks[i:end],
		}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBlock moves a block to the trash.
func (s *Service) DeleteBlock(ctx context.Context, blockID string) (json.RawMessage, error) {
	id, err := requireID("block_id", blockID)
	if err != nil {
		return nil, err
	}
	return s.client.Delete(ctx, "/blocks/"+id)
}
