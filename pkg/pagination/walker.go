package pagination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbendersky/notion-mcp-gateway/pkg/client"
	"github.com/rs/zerolog/log"
)

// MaxPageSize is the upstream page size ceiling. Requests above it are
// clamped before sending; Notion errors on larger values.
const MaxPageSize = 100

// DefaultMaxPages bounds a single walk to prevent runaway loops on a
// misbehaving cursor.
const DefaultMaxPages = 100

// Executor performs one settled API call. *client.Client satisfies this.
type Executor interface {
	Do(ctx context.Context, req client.Request) (json.RawMessage, error)
}

// PageRequest builds the request for one page. cursor is empty for the
// first page; pageSize is already clamped. Implementations decide whether
// the cursor travels as a query parameter (GET endpoints) or in the body
// (query/search endpoints).
type PageRequest func(cursor string, pageSize int) client.Request

// Config holds walk configuration.
type Config struct {
	// PageSize is the per-page item count, clamped to MaxPageSize.
	PageSize int

	// MaxPages is the page-count safety ceiling.
	MaxPages int
}

// DefaultConfig returns the default walk configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: MaxPageSize,
		MaxPages: DefaultMaxPages,
	}
}

// State describes how a walk ended.
type State string

const (
	// StateExhausted means the server reported no more pages.
	StateExhausted State = "exhausted"

	// StateTruncated means more pages existed but the ceiling was hit.
	StateTruncated State = "truncated"

	// StateFailed means a terminal request failure ended the walk early.
	StateFailed State = "failed"
)

// Result is the accumulated outcome of one walk. Items preserve
// server-returned order across pages; on failure they hold whatever was
// collected before the terminal error.
type Result struct {
	Items []json.RawMessage
	Pages int
	State State
	Err   error
}

// Partial reports whether the result set is incomplete.
func (r *Result) Partial() bool {
	return r.State != StateExhausted
}

// page is the upstream list envelope. Only the fields the walker
// inspects are typed; items pass through verbatim.
type page struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor *string           `json:"next_cursor"`
}

// Walk drives repeated executions of nextPage until the server reports no
// more pages, the ceiling is reached, or a request fails terminally.
// Strictly sequential: page N+1 is requested only after page N settles.
// The returned Result is never nil; err is non-nil only when the walk
// failed, and then Result still carries the partial items.
func Walk(ctx context.Context, exec Executor, nextPage PageRequest, cfg Config) (*Result, error) {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	result := &Result{State: StateExhausted}
	cursor := ""

	for {
		payload, err := exec.Do(ctx, nextPage(cursor, pageSize))
		if err != nil {
			result.State = StateFailed
			result.Err = err
			log.Warn().
				Err(err).
				Int("pages", result.Pages).
				Int("items", len(result.Items)).
				Msg("Pagination walk failed - returning partial results")
			return result, err
		}

		var p page
		if err := json.Unmarshal(payload, &p); err != nil {
			err = fmt.Errorf("parse page %d: %w", result.Pages+1, err)
			result.State = StateFailed
			result.Err = err
			return result, err
		}

		result.Items = append(result.Items, p.Results...)
		result.Pages++

		if !p.HasMore {
			return result, nil
		}

		if !cursorUsable(p.NextCursor) {
			// Known upstream quirk: has_more true with a missing, empty,
			// or literal "null" cursor. Treated as end of data.
			log.Debug().
				Int("pages", result.Pages).
				Msg("Unusable next_cursor with has_more set - stopping walk")
			return result, nil
		}

		if result.Pages >= maxPages {
			result.State = StateTruncated
			log.Warn().
				Int("pages", result.Pages).
				Int("max_pages", maxPages).
				Msg("Pagination ceiling reached - returning truncated results")
			return result, nil
		}

		cursor = *p.NextCursor
	}
}

// cursorUsable applies the cursor validity check: non-nil, non-empty,
// and not the literal string "null" that the upstream API sometimes
// emits instead of omitting the field.
func cursorUsable(next *string) bool {
	return next != nil && *next != "" && *next != "null"
}
