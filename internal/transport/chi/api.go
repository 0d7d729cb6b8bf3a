package chi

import "encoding/json"

// ErrorResponseCode is the machine-readable error code of an API error.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest          ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized        ErrorResponseCode = "unauthorized"
	ErrorResponseCodeSessionNotFound     ErrorResponseCode = "session_not_found"
	ErrorResponseCodeWidgetNotFound      ErrorResponseCode = "widget_not_found"
	ErrorResponseCodeInvalidOperation    ErrorResponseCode = "invalid_operation"
	ErrorResponseCodeWidgetMisconfigured ErrorResponseCode = "widget_misconfigured"
	ErrorResponseCodeMalformedEntry      ErrorResponseCode = "malformed_entry"
	ErrorResponseCodeBackendError        ErrorResponseCode = "backend_error"
	ErrorResponseCodeInternalError       ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
	Widget  string            `json:"widget,omitempty"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	ID string `json:"id"`
}

// ParamsResponse is returned by GET /sessions/{session}/params.
type ParamsResponse struct {
	Query string `json:"query"`
}

// SearchResponse is returned by GET /sessions/{session}/search.
type SearchResponse struct {
	NumFound int64             `json:"num_found"`
	Start    int64             `json:"start"`
	QTime    int               `json:"qtime"`
	Docs     []json.RawMessage `json:"docs"`
}

// ChangeResponse is returned by selection operations.
type ChangeResponse struct {
	Changed bool `json:"changed"`
}

// SelectionResponse is returned by GET .../selection.
type SelectionResponse struct {
	Values []string `json:"values"`
	Empty  bool     `json:"empty"`
}

// PositionResponse is returned by GET .../position.
type PositionResponse struct {
	Index int `json:"index"`
}

// CountsResponse is returned by GET .../counts.
type CountsResponse struct {
	Counts []FacetCount `json:"counts"`
}

// FacetCount is one facet value with its document tally.
type FacetCount struct {
	Facet   string `json:"facet"`
	Count   int    `json:"count"`
	Missing bool   `json:"missing,omitempty"`
}

// Widget describes a configured widget.
type Widget struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Kind  string `json:"kind"`
	Mode  string `json:"mode"`
	Tag   string `json:"tag,omitempty"`
	Key   string `json:"key,omitempty"`
	Ex    string `json:"ex,omitempty"`
}

// WidgetListResponse is returned by GET /widgets.
type WidgetListResponse struct {
	Widgets []Widget `json:"widgets"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// valueQuery is the query string of value-taking endpoints.
type valueQuery struct {
	Value string `schema:"value"`
}
