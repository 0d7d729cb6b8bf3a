package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/event"
	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	"github.com/kailas-cloud/solrfacet/internal/domain/param"
	"github.com/kailas-cloud/solrfacet/internal/domain/response"
	logpkg "github.com/kailas-cloud/solrfacet/internal/logger"
	"github.com/kailas-cloud/solrfacet/internal/usecase/counts"
	"github.com/kailas-cloud/solrfacet/internal/usecase/selection"
)

// Default is a parameter every new session starts with.
type Default struct {
	Name  string
	Value string
}

// Config holds the widgets and default parameters shared by all sessions.
type Config struct {
	Widgets  []facet.Widget
	Defaults []Default
}

// State is a widget's current selection.
type State struct {
	Values []string
	Empty  bool
}

// Service manages selection sessions. A session is one parameter store shared
// by all configured widgets; operations on a session are serialised.
type Service struct {
	widgets  map[string]facet.Widget
	order    []facet.Widget
	defaults []Default
	backend  Backend
	repo     SessionRepository
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the in-process side of a session: its lock and last response.
// refs and seen are guarded by Service.mu, the rest by mu.
type session struct {
	mu        sync.Mutex
	refs      int
	seen      time.Time
	gone      bool
	lastQuery string
	last      *response.Response
}

// New creates a session service. events and logger may be nil.
func New(cfg Config, backend Backend, repo SessionRepository, events EventPublisher, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	widgets := make(map[string]facet.Widget, len(cfg.Widgets))
	for _, w := range cfg.Widgets {
		if _, dup := widgets[w.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate widget id %q", domain.ErrInvalidWidget, w.ID())
		}
		widgets[w.ID()] = w
	}
	return &Service{
		widgets:  widgets,
		order:    cfg.Widgets,
		defaults: cfg.Defaults,
		backend:  backend,
		repo:     repo,
		events:   events,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}, nil
}

// Widgets returns the configured widgets in declaration order.
func (s *Service) Widgets() []facet.Widget {
	return append([]facet.Widget(nil), s.order...)
}

// Create starts a session seeded with the default parameters and every
// widget's facet declarations. Returns the session id.
func (s *Service) Create(ctx context.Context) (string, error) {
	store := param.NewStore()
	for _, d := range s.defaults {
		store.AddByValue(d.Name, d.Value)
	}
	store.AddByValue("wt", "json")
	for _, w := range s.order {
		selection.New(w, store, s.logger).Init()
	}

	id := uuid.New().String()
	if err := s.repo.Save(ctx, id, store); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug("session created", logpkg.Session(id))
	return id, nil
}

// Delete drops a session.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	sess := s.lock(sessionID)
	defer s.unlock(sessionID, sess)

	err := s.repo.Delete(ctx, sessionID)
	if err == nil || errors.Is(err, domain.ErrSessionNotFound) {
		sess.gone = true
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Apply runs a selection operation for a widget. When the selection changed,
// the session is saved, the search re-issued and a change event published.
// A failed refresh is logged; the next Counts call retries it.
func (s *Service) Apply(ctx context.Context, sessionID, widgetID string, op selection.Op, value string) (bool, error) {
	w, err := s.widget(widgetID)
	if err != nil {
		return false, err
	}

	sess := s.lock(sessionID)
	defer s.unlock(sessionID, sess)

	store, err := s.load(ctx, sess, sessionID)
	if err != nil {
		return false, err
	}

	log := s.logger.With(logpkg.Session(sessionID))
	var changes []selection.Change
	ctrl := selection.New(w, store, log)
	ctrl.OnChange(func(c selection.Change) { changes = append(changes, c) })

	changed, err := ctrl.Apply(op, value)
	if err != nil || !changed {
		return false, err
	}

	if err := s.repo.Save(ctx, sessionID, store); err != nil {
		return false, fmt.Errorf("save session: %w", err)
	}
	if _, err := s.run(ctx, sess, store); err != nil {
		log.Warn("refresh search after selection change", zap.Error(err))
	}
	s.publish(ctx, sessionID, changes)
	return true, nil
}

// Search runs the session's current query against the backend.
func (s *Service) Search(ctx context.Context, sessionID string) (*response.Response, error) {
	sess := s.lock(sessionID)
	defer s.unlock(sessionID, sess)

	store, err := s.load(ctx, sess, sessionID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, sess, store)
}

// Counts returns the widget's facet counts from the last response for the
// session's current query, searching first when there is none.
func (s *Service) Counts(ctx context.Context, sessionID, widgetID string) ([]facet.Count, error) {
	w, err := s.widget(widgetID)
	if err != nil {
		return nil, err
	}

	sess := s.lock(sessionID)
	defer s.unlock(sessionID, sess)

	store, err := s.load(ctx, sess, sessionID)
	if err != nil {
		return nil, err
	}

	resp := sess.last
	if resp == nil || sess.lastQuery != store.Encode() {
		if resp, err = s.run(ctx, sess, store); err != nil {
			return nil, err
		}
	}

	shape := facet.ShapeFlat
	if p := store.Get(facet.ShapeParam); p != nil {
		shape = facet.ParseShape(p.Val())
	}
	return counts.Decode(w, shape, resp.FacetCounts)
}

// Selection returns the widget's selected values.
func (s *Service) Selection(ctx context.Context, sessionID, widgetID string) (State, error) {
	var st State
	err := s.withController(ctx, sessionID, widgetID, func(c *selection.Controller) error {
		vals, err := c.QueryValues(c.Params())
		if err != nil {
			return err
		}
		st = State{Values: vals, Empty: c.IsEmpty()}
		return nil
	})
	return st, err
}

// Position returns the index of value among the widget's selected values, or -1.
func (s *Service) Position(ctx context.Context, sessionID, widgetID, value string) (int, error) {
	idx := -1
	err := s.withController(ctx, sessionID, widgetID, func(c *selection.Controller) error {
		var err error
		idx, err = c.InQuery(value)
		return err
	})
	return idx, err
}

// Params returns the session's encoded query string.
func (s *Service) Params(ctx context.Context, sessionID string) (string, error) {
	sess := s.lock(sessionID)
	defer s.unlock(sessionID, sess)

	store, err := s.load(ctx, sess, sessionID)
	if err != nil {
		return "", err
	}
	return store.Encode(), nil
}

func (s *Service) withController(
	ctx context.Context, sessionID, widgetID string, fn func(*selection.Controller) error,
) error {
	w, err := s.widget(widgetID)
	if err != nil {
		return err
	}

	sess := s.lock(sessionID)
	defer s.unlock(sessionID, sess)

	store, err := s.load(ctx, sess, sessionID)
	if err != nil {
		return err
	}
	return fn(selection.New(w, store, s.logger))
}

func (s *Service) widget(id string) (facet.Widget, error) {
	w, ok := s.widgets[id]
	if !ok {
		return facet.Widget{}, fmt.Errorf("%w: %q", domain.ErrWidgetNotFound, id)
	}
	return w, nil
}

// lock returns the session's in-process state with its mutex held.
// Every lock is paired with unlock.
func (s *Service) lock(id string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.refs++
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

// unlock releases sess. Once nobody holds it, a session that no longer
// exists in the repository is dropped.
func (s *Service) unlock(id string, sess *session) {
	gone := sess.gone
	sess.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.refs--
	sess.seen = s.now()
	if gone && sess.refs == 0 && s.sessions[id] == sess {
		delete(s.sessions, id)
	}
}

// Evict drops the in-process state of sessions unused for longer than idle,
// including their cached responses. A live session evicted this way searches
// again on its next Counts call. Returns the number of entries dropped.
func (s *Service) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.refs == 0 && sess.seen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunEvictor calls Evict until ctx is done, checking every idle/2.
func (s *Service) RunEvictor(ctx context.Context, idle time.Duration) {
	interval := max(idle/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(idle); n > 0 {
				s.logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) load(ctx context.Context, sess *session, id string) (*param.Store, error) {
	store, err := s.repo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			sess.gone = true
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return store, nil
}

// run queries the backend and caches the response on the session.
func (s *Service) run(ctx context.Context, sess *session, store *param.Store) (*response.Response, error) {
	sess.last, sess.lastQuery = nil, ""
	resp, err := s.backend.Select(ctx, store.URLValues())
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	sess.last, sess.lastQuery = resp, store.Encode()
	return resp, nil
}

func (s *Service) publish(ctx context.Context, sessionID string, changes []selection.Change) {
	if s.events == nil {
		return
	}
	for _, c := range changes {
		e := event.Selection{
			Session: sessionID,
			Widget:  c.WidgetID,
			Field:   c.Field,
			Op:      string(c.Op),
			Value:   c.Value,
			At:      s.now().UTC(),
		}
		if err := s.events.Publish(ctx, e); err != nil {
			s.logger.Warn("publish selection event",
				logpkg.Session(sessionID), logpkg.Widget(c.WidgetID), zap.Error(err))
		}
	}
}
