package search

import (
	"context"
	"net/url"

	"github.com/kailas-cloud/solrfacet/internal/domain/event"
	"github.com/kailas-cloud/solrfacet/internal/domain/param"
	"github.com/kailas-cloud/solrfacet/internal/domain/response"
)

// Backend runs select requests against the search engine.
type Backend interface {
	Select(ctx context.Context, params url.Values) (*response.Response, error)
}

// SessionRepository persists session parameter stores.
type SessionRepository interface {
	Save(ctx context.Context, id string, store *param.Store) error
	Load(ctx context.Context, id string) (*param.Store, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher publishes selection changes.
type EventPublisher interface {
	Publish(ctx context.Context, e event.Selection) error
}
