// Package tools registers the Notion operation surface as MCP tools.
// Handlers translate structured client errors into tool error results
// carrying the error kind, message, and retryable flag, and flag partial
// pagination results instead of silently truncating them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pbendersky/notion-mcp-gateway/pkg/client"
	"github.com/pbendersky/notion-mcp-gateway/pkg/notion"
	"github.com/pbendersky/notion-mcp-gateway/pkg/pagination"
)

// Handler binds tool callbacks to the Notion service.
type Handler struct {
	svc *notion.Service
}

// Register adds every Notion tool to the MCP server.
func Register(s *server.MCPServer, svc *notion.Service) {
	h := &Handler{svc: svc}

	s.AddTool(retrievePageTool(), h.handleRetrievePage)
	s.AddTool(retrieveDatabaseTool(), h.handleRetrieveDatabase)
	s.AddTool(queryDatabaseTool(), h.handleQueryDatabase)
	s.AddTool(searchTool(), h.handleSearch)
	s.AddTool(retrieveBlockChildrenTool(), h.handleRetrieveBlockChildren)
	s.AddTool(listUsersTool(), h.handleListUsers)
	s.AddTool(retrieveUserTool(), h.handleRetrieveUser)
	s.AddTool(createPageTool(), h.handleCreatePage)
	s.AddTool(updatePageTool(), h.handleUpdatePage)
	s.AddTool(archivePageTool(), h.handleArchivePage)
	s.AddTool(appendBlocksTool(), h.handleAppendBlocks)
	s.AddTool(deleteBlockTool(), h.handleDeleteBlock)
	s.AddTool(retrieveCommentsTool(), h.handleRetrieveComments)
	s.AddTool(addCommentTool(), h.handleAddComment)
}

// args extracts the tool arguments map.
func args(req mcp.CallToolRequest) map[string]any {
	m, _ := req.Params.Arguments.(map[string]any)
	return m
}

// stringArg returns a string argument, or "" when absent.
func stringArg(req mcp.CallToolRequest, name string) string {
	v, _ := args(req)[name].(string)
	return v
}

// jsonArg parses a JSON-encoded string argument into v.
// Absent or empty arguments leave v untouched and return false.
func jsonArg(req mcp.CallToolRequest, name string, v any) (bool, error) {
	raw := stringArg(req, name)
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("%s is not valid JSON: %v", name, err)
	}
	return true, nil
}

// errorResult renders a structured error as a tool error carrying
// kind + message + retryable.
func errorResult(err error) *mcp.CallToolResult {
	kind := client.Classify(err)
	if kind == "" {
		if errors.Is(err, client.ErrRetriesExhausted) {
			kind = "retries_exhausted"
		} else {
			kind = "internal"
		}
	}

	retryable := false
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		retryable = apiErr.Retryable() || errors.Is(err, client.ErrRetriesExhausted)
	}

	return mcp.NewToolResultError(fmt.Sprintf("%s error (retryable=%t): %v", kind, retryable, err))
}

// jsonResult renders a payload as pretty-printed JSON text.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal error (retryable=false): encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// walkResult renders a pagination walk, surfacing partial results
// alongside truncation or terminal failure instead of discarding them.
func walkResult(res *pagination.Result, err error, items any) *mcp.CallToolResult {
	payload := map[string]any{
		"items": items,
		"pages": res.Pages,
		"state": res.State,
	}
	if res.Partial() {
		payload["partial"] = true
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	return jsonResult(payload)
}

func retrievePageTool() mcp.Tool {
	return mcp.NewTool("notion_retrieve_page",
		mcp.WithDescription("Retrieve a Notion page object by ID, including all property values."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Notion page ID (with or without dashes)"),
		),
	)
}

func (h *Handler) handleRetrievePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := h.svc.RetrievePage(ctx, stringArg(req, "page_id"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page), nil
}

func retrieveDatabaseTool() mcp.Tool {
	return mcp.NewTool("notion_retrieve_database",
		mcp.WithDescription("Retrieve a Notion database object by ID, including its property schema."),
		mcp.WithString("database_id",
			mcp.Required(),
			mcp.Description("Notion database ID (with or without dashes)"),
		),
	)
}

func (h *Handler) handleRetrieveDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	db, err := h.svc.RetrieveDatabase(ctx, stringArg(req, "database_id"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(db), nil
}

func queryDatabaseTool() mcp.Tool {
	return mcp.NewTool("notion_query_database",
		mcp.WithDescription("Query a Notion database, collecting all matching pages across cursor pages. Returns flattened property values."),
		mcp.WithString("database_id",
			mcp.Required(),
			mcp.Description("Notion database ID (with or without dashes)"),
		),
		mcp.WithString("filter_json",
			mcp.Description("Optional Notion filter object as a JSON string"),
		),
		mcp.WithString("sorts_json",
			mcp.Description("Optional Notion sorts array as a JSON string"),
		),
	)
}

func (h *Handler) handleQueryDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter, sorts any
	if _, err := jsonArg(req, "filter_json", &filter); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := jsonArg(req, "sorts_json", &sorts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.svc.QueryDatabase(ctx, stringArg(req, "database_id"), filter, sorts)
	if err != nil && res == nil {
		return errorResult(err), nil
	}
	return walkResult(res, err, notion.FlattenPages(res.Items)), nil
}

func searchTool() mcp.Tool {
	return mcp.NewTool("notion_search",
		mcp.WithDescription("Search pages and databases shared with the integration. Empty query lists everything."),
		mcp.WithString("query",
			mcp.Description("Search text; matches page and database titles"),
		),
		mcp.WithString("filter_json",
			mcp.Description("Optional search filter object as a JSON string, e.g. {\"property\":\"object\",\"value\":\"page\"}"),
		),
	)
}

func (h *Handler) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter any
	if _, err := jsonArg(req, "filter_json", &filter); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.svc.Search(ctx, stringArg(req, "query"), filter)
	if err != nil && res == nil {
		return errorResult(err), nil
	}
	return walkResult(res, err, notion.FlattenPages(res.Items)), nil
}

func retrieveBlockChildrenTool() mcp.Tool {
	return mcp.NewTool("notion_retrieve_block_children",
		mcp.WithDescription("Retrieve all child blocks of a page or block, collected across cursor pages."),
		mcp.WithString("block_id",
			mcp.Required(),
			mcp.Description("Notion block or page ID (with or without dashes)"),
		),
	)
}

func (h *Handler) handleRetrieveBlockChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.svc.RetrieveBlockChildren(ctx, stringArg(req, "block_id"))
	if err != nil && res == nil {
		return errorResult(err), nil
	}
	return walkResult(res, err, res.Items), nil
}

func listUsersTool() mcp.Tool {
	return mcp.NewTool("notion_list_users",
		mcp.WithDescription("List all users in the workspace."),
	)
}

func (h *Handler) handleListUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.svc.ListUsers(ctx)
	if err != nil && res == nil {
		return errorResult(err), nil
	}
	return walkResult(res, err, res.Items), nil
}

func retrieveUserTool() mcp.Tool {
	return mcp.NewTool("notion_retrieve_user",
		mcp.WithDescription("Retrieve a user object by ID."),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Notion user ID"),
		),
	)
}

func (h *Handler) handleRetrieveUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := h.svc.RetrieveUser(ctx, stringArg(req, "user_id"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(user), nil
}

func createPageTool() mcp.Tool {
	return mcp.NewTool("notion_create_page",
		mcp.WithDescription("Create a page under a page or database parent."),
		mcp.WithString("parent_json",
			mcp.Required(),
			mcp.Description("Parent reference as a JSON string, e.g. {\"page_id\":\"...\"} or {\"database_id\":\"...\"}"),
		),
		mcp.WithString("properties_json",
			mcp.Required(),
			mcp.Description("Page properties as a JSON string; for a page parent this is the title property"),
		),
		mcp.WithString("children_json",
			mcp.Description("Optional array of block objects as a JSON string"),
		),
	)
}

func (h *Handler) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var parent, properties map[string]any
	var children []map[string]any

	if _, err := jsonArg(req, "parent_json", &parent); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := jsonArg(req, "properties_json", &properties); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := jsonArg(req, "children_json", &children); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := h.svc.CreatePage(ctx, parent, properties, children)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page), nil
}

func updatePageTool() mcp.Tool {
	return mcp.NewTool("notion_update_page",
		mcp.WithDescription("Update page property values."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Notion page ID (with or without dashes)"),
		),
		mcp.WithString("properties_json",
			mcp.Required(),
			mcp.Description("Properties to update as a JSON string"),
		),
	)
}

func (h *Handler) handleUpdatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var properties map[string]any
	if _, err := jsonArg(req, "properties_json", &properties); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := h.svc.UpdatePage(ctx, stringArg(req, "page_id"), properties)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page), nil
}

func archivePageTool() mcp.Tool {
	return mcp.NewTool("notion_archive_page",
		mcp.WithDescription("Move a page to the trash, or restore it with archived=false."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Notion page ID (with or without dashes)"),
		),
		mcp.WithBoolean("archived",
			mcp.Description("true to archive (default), false to restore"),
		),
	)
}

func (h *Handler) handleArchivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	archived := true
	if v, ok := args(req)["archived"].(bool); ok {
		archived = v
	}

	page, err := h.svc.ArchivePage(ctx, stringArg(req, "page_id"), archived)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page), nil
}

func appendBlocksTool() mcp.Tool {
	return mcp.NewTool("notion_append_blocks",
		mcp.WithDescription("Append block children to a page or block. Large arrays are sent in batches of 100."),
		mcp.WithString("block_id",
			mcp.Required(),
			mcp.Description("Notion block or page ID (with or without dashes)"),
		),
		mcp.WithString("children_json",
			mcp.Required(),
			mcp.Description("Array of block objects as a JSON string"),
		),
	)
}

func (h *Handler) handleAppendBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var children []map[string]any
	if _, err := jsonArg(req, "children_json", &children); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.svc.AppendBlockChildren(ctx, stringArg(req, "block_id"), children); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Appended %d blocks", len(children))), nil
}

func deleteBlockTool() mcp.Tool {
	return mcp.NewTool("notion_delete_block",
		mcp.WithDescription("Move a block (or a page, via its block ID) to the trash."),
		mcp.WithString("block_id",
			mcp.Required(),
			mcp.Description("Notion block ID (with or without dashes)"),
		),
	)
}

func (h *Handler) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	block, err := h.svc.DeleteBlock(ctx, stringArg(req, "block_id"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(block), nil
}

func retrieveCommentsTool() mcp.Tool {
	return mcp.NewTool("notion_retrieve_comments",
		mcp.WithDescription("Retrieve all comments on a page or block, collected across cursor pages."),
		mcp.WithString("block_id",
			mcp.Required(),
			mcp.Description("Notion page or block ID (with or without dashes)"),
		),
	)
}

func (h *Handler) handleRetrieveComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.svc.RetrieveComments(ctx, stringArg(req, "block_id"))
	if err != nil && res == nil {
		return errorResult(err), nil
	}
	return walkResult(res, err, res.Items), nil
}

func addCommentTool() mcp.Tool {
	return mcp.NewTool("notion_add_comment",
		mcp.WithDescription("Add a comment to a page."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Notion page ID (with or without dashes)"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Comment text"),
		),
	)
}

func (h *Handler) handleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	comment, err := h.svc.CreateComment(ctx, stringArg(req, "page_id"), stringArg(req, "text"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(comment), nil
}
