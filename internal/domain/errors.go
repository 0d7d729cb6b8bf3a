package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound signals an unknown or expired selection session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrWidgetNotFound signals a widget id that is not configured.
	ErrWidgetNotFound = errors.New("widget not found")
	// ErrInvalidWidget signals an invalid widget definition.
	ErrInvalidWidget = errors.New("invalid widget")
	// ErrInvalidOperation signals an unknown selection operation.
	ErrInvalidOperation = errors.New("invalid selection operation")
	// ErrNoFacetKind signals a widget without facet.field, facet.date or facet.range,
	// so there is no response bucket to read counts from.
	ErrNoFacetKind = errors.New("no facet kind configured")
	// ErrMalformedEntry signals a stored fq entry that does not have the
	// form this widget writes. The store was mutated behind the widget's back.
	ErrMalformedEntry = errors.New("malformed filter query entry")
	// ErrMalformedCounts signals facet counts that do not fit the negotiated shape.
	ErrMalformedCounts = errors.New("malformed facet counts")
	// ErrBackend signals a search backend failure.
	ErrBackend = errors.New("search backend error")
)

// WidgetError ties a failure to the widget that raised it.
type WidgetError struct {
	WidgetID string
	Err      error
}

func (e *WidgetError) Error() string {
	return fmt.Sprintf("widget %q: %s", e.WidgetID, e.Err.Error())
}

func (e *WidgetError) Unwrap() error { return e.Err }

// NewWidgetError wraps err with the widget id.
func NewWidgetError(widgetID string, err error) error {
	return &WidgetError{WidgetID: widgetID, Err: err}
}
