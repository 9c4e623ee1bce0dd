package client

import (
	"net/url"
	"strings"
)

// Request describes a single Notion API call. It is constructed fresh per
// operation and must not be mutated after being handed to the client.
type Request struct {
	// Method is the HTTP method (GET, POST, PATCH, DELETE).
	Method string

	// Path is the endpoint path relative to the API base, e.g. "/pages/{id}".
	// Must begin with "/".
	Path string

	// Query holds optional query parameters.
	Query url.Values

	// Body is the optional JSON payload, marshalled once per call.
	Body any

	// ReadOnly marks a read-shaped POST endpoint (query, search) that
	// mutates nothing. Read-only requests never invalidate cached reads.
	ReadOnly bool
}

// validate checks the request descriptor for contract violations.
func (r Request) validate() error {
	if r.Method == "" {
		return &ValidationError{Reason: "method is required"}
	}
	if r.Path == "" {
		return &ValidationError{Reason: "path is required"}
	}
	if !strings.HasPrefix(r.Path, "/") {
		return &ValidationError{Reason: "path must begin with /"}
	}
	return nil
}

// url builds the absolute request URL against the given API base.
func (r Request) url(base string) string {
	u := strings.TrimSuffix(base, "/") + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}
