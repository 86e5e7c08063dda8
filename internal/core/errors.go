package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every error returned by the fetch and report layers wraps one
// of these so callers can branch with errors.Is.
var (
	ErrAuth               = errors.New("authentication failed")
	ErrNotFound           = errors.New("resource not found")
	ErrServer             = errors.New("server error")
	ErrHTTP               = errors.New("unexpected http status")
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")
	ErrConnection         = errors.New("connection failed")
	ErrDecode             = errors.New("invalid response body")
	ErrWrite              = errors.New("report write failed")
	ErrMalformedNumber    = errors.New("malformed numeric value")
)

var errorCodes = []struct {
	kind error
	code string
}{
	{ErrAuth, "SGO_AUTH"},
	{ErrNotFound, "SGO_NOT_FOUND"},
	{ErrServer, "SGO_SERVER"},
	{ErrHTTP, "SGO_HTTP"},
	{ErrRateLimitExhausted, "SGO_RATE_LIMIT"},
	{ErrConnection, "SGO_CONNECTION"},
	{ErrDecode, "SGO_DECODE"},
	{ErrWrite, "REPORT_WRITE"},
	{ErrMalformedNumber, "DATA_MALFORMED_NUMBER"},
}

// ErrorCode returns the stable code for the kind wrapped by err, or
// "UNEXPECTED" when err carries none of the known kinds.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return "UNEXPECTED"
}

// KindForStatus maps a non-success HTTP status to an error kind.
func KindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusInternalServerError:
		return ErrServer
	default:
		return ErrHTTP
	}
}

// APIError describes a failed call to the SGO API.
type APIError struct {
	Kind       error
	Endpoint   string
	StatusCode int
	BudgetID   string
	Attempts   int
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " (%s", e.Endpoint)
		if e.BudgetID != "" {
			fmt.Fprintf(&b, " budgetId=%s", e.BudgetID)
		}
		b.WriteString(")")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WriteError describes a workbook that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrWrite, e.Err}
}

// DataError points at the record and field holding an unusable value.
type DataError struct {
	Relation string
	Index    int
	Field    string
	Err      error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s[%d].%s: %v", e.Relation, e.Index, e.Field, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}
