// Package pagination walks cursor-paginated Notion endpoints.
//
// Notion list endpoints return {results, has_more, next_cursor}; the next
// page is only addressable once the current page's cursor arrives, so the
// walk is strictly sequential.
//
// Example usage:
//
//	result, err := pagination.Walk(ctx, notionClient, func(cursor string, pageSize int) client.Request {
//		q := url.Values{"page_size": {strconv.Itoa(pageSize)}}
//		if cursor != "" {
//			q.Set("start_cursor", cursor)
//		}
//		return client.Request{Method: "GET", Path: "/blocks/" + id + "/children", Query: q}
//	}, pagination.DefaultConfig())
//
// The walker:
//   - Clamps page size to the upstream maximum (100)
//   - Accumulates results in server order across pages
//   - Stops on has_more=false, an unusable cursor, or the page ceiling
//   - Returns partial results alongside the error on terminal failure
package pagination
