package solrfacet

import (
	"errors"

	"github.com/kailas-cloud/solrfacet/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidWidget    = domain.ErrInvalidWidget
	ErrInvalidOperation = domain.ErrInvalidOperation
	ErrNoFacetKind      = domain.ErrNoFacetKind
	ErrMalformedEntry   = domain.ErrMalformedEntry
	ErrMalformedCounts  = domain.ErrMalformedCounts
	ErrBackend          = domain.ErrBackend
)

// ErrNoResponse is returned by Widget.Counts before the Manager has searched.
var ErrNoResponse = errors.New("solrfacet: no search response yet")

// WidgetError ties a failure to the widget that raised it.
// Use errors.As() to extract the widget id.
type WidgetError = domain.WidgetError
