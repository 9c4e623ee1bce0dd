package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces all cache keys in Redis.
const keyPrefix = "notion"

// Key represents a unique identifier for a cached Notion response.
type Key struct {
	// Path is the endpoint path (e.g., "/blocks/abc123/children")
	Path string

	// Query are the query parameters (e.g., {"page_size": "100"})
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: notion:path:query1=val1:query2=val2
//
// Example:
//
//	notion:blocks/abc123/children:page_size=100
func (k Key) String() string {
	parts := []string{keyPrefix}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// PrefixPattern returns the Redis key glob matching every cached entry
// under the given endpoint path prefix, used for write invalidation.
func PrefixPattern(pathPrefix string) string {
	trimmed := strings.Trim(pathPrefix, "/")
	if trimmed == "" {
		return keyPrefix + ":*"
	}
	// The first path segment defines the invalidation scope: a write to
	// /pages/{id} drops every cached /pages read.
	segment := trimmed
	if i := strings.Index(trimmed, "/"); i > 0 {
		segment = trimmed[:i]
	}
	return keyPrefix + ":" + segment + "*"
}
