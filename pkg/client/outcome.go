package client

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// outcome is the classified result of a single request attempt.
// Exactly one of the classified cases holds: success (class == ""),
// or one of the ErrorClass values.
type outcome struct {
	class   ErrorClass
	status  int
	payload []byte

	// Retry-After header value, valid only when hasRetryAfter is true.
	retryAfter    time.Duration
	hasRetryAfter bool

	// Upstream error body fields, preserved verbatim.
	message string
	code    string

	// Transport cause, set only for ErrorClassTransport.
	err error
}

// success reports whether the attempt settled with a 2xx response.
func (o outcome) success() bool {
	return o.class == ""
}

// apiError converts a failed outcome into the error surfaced to callers.
func (o outcome) apiError() error {
	return &APIError{
		StatusCode: o.status,
		Class:      o.class,
		Code:       o.code,
		Message:    o.message,
		Err:        o.err,
	}
}

// classifyResponse turns a completed HTTP response into an outcome.
// The body is passed through verbatim on success; on failure the upstream
// error shape {message, code} is extracted when present.
func classifyResponse(status int, header http.Header, body []byte) outcome {
	switch {
	case status >= 200 && status < 300:
		return outcome{status: status, payload: body}

	case status == http.StatusTooManyRequests:
		o := outcome{class: ErrorClassRateLimit, status: status}
		o.message, o.code = parseErrorBody(body)
		o.retryAfter, o.hasRetryAfter = parseRetryAfter(header)
		return o

	case status >= 400 && status < 500:
		o := outcome{class: ErrorClassClient, status: status}
		o.message, o.code = parseErrorBody(body)
		return o

	default:
		o := outcome{class: ErrorClassServer, status: status}
		o.message, o.code = parseErrorBody(body)
		return o
	}
}

// transportOutcome wraps a failed network call (DNS, reset, timeout).
func transportOutcome(err error) outcome {
	return outcome{class: ErrorClassTransport, err: err}
}

// parseRetryAfter extracts the Retry-After header as whole seconds.
// Returns false when the header is absent or not an integer.
func parseRetryAfter(header http.Header) (time.Duration, bool) {
	v := header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// parseErrorBody extracts the upstream error shape {message, code}.
// A body that is not JSON, or lacks the fields, yields empty strings.
func parseErrorBody(body []byte) (message, code string) {
	var e struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return "", ""
	}
	return e.Message, e.Code
}
