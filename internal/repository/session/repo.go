package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/solrfacet/internal/db"
	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/param"
)

// store is the consumer interface for sessions (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Repo implements usecase/search.SessionRepository. A session is stored as
// its encoded query string; reads extend the TTL.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a session repository. Keys are <prefix>session:<id>.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Save writes the session's parameters and resets its TTL.
func (r *Repo) Save(ctx context.Context, id string, s *param.Store) error {
	if err := r.store.SetWithTTL(ctx, r.key(id), []byte(s.Encode()), r.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Load reads the session's parameters.
func (r *Repo) Load(ctx context.Context, id string) (*param.Store, error) {
	key := r.key(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, r.mapErr(id, err)
	}
	if r.ttl > 0 {
		if err := r.store.Expire(ctx, key, r.ttl); err != nil {
			return nil, r.mapErr(id, err)
		}
	}

	s, err := param.ParseQuery(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// Delete removes the session.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return r.mapErr(id, err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "session:" + id
}

func (r *Repo) mapErr(id string, err error) error {
	if errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return fmt.Errorf("session %s: %w", id, err)
}
