package solrfacet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	"github.com/kailas-cloud/solrfacet/internal/domain/param"
	"github.com/kailas-cloud/solrfacet/internal/domain/response"
	"github.com/kailas-cloud/solrfacet/internal/usecase/selection"
)

// Result is the document section of a Solr response.
type Result struct {
	NumFound int64
	Start    int64
	QTime    int
	Docs     []json.RawMessage
}

// Manager holds one query's parameters and the widgets that edit them.
// All methods, including those of its widgets, are safe for concurrent use.
type Manager struct {
	client *Client

	mu      sync.Mutex
	store   *param.Store
	widgets map[string]*Widget
	last    *response.Response
}

func newManager(c *Client) *Manager {
	store := param.NewStore()
	for _, p := range c.defaults {
		store.AddByValue(p.Name, p.Value)
	}
	store.AddByValue("wt", "json")
	return &Manager{client: c, store: store, widgets: make(map[string]*Widget)}
}

// Widget registers a widget and declares its facet on the query.
func (m *Manager) Widget(cfg WidgetConfig) (*Widget, error) {
	fw, err := facet.New(cfg.facet())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidWidget, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.widgets[fw.ID()]; dup {
		return nil, fmt.Errorf("%w: duplicate widget id %q", domain.ErrInvalidWidget, fw.ID())
	}

	ctrl := selection.New(fw, m.store, nil)
	ctrl.Init()
	w := &Widget{m: m, ctrl: ctrl}
	m.widgets[fw.ID()] = w
	return w, nil
}

// Set replaces every value of a query parameter (q, rows, start, ...).
func (m *Manager) Set(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Delete(name)
	m.store.AddByValue(name, value)
}

// Params returns the current query string.
func (m *Manager) Params() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Encode()
}

// Search sends the current query to Solr and keeps the response for Counts.
func (m *Manager) Search(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	resp, err := m.client.backend.Select(ctx, m.store.URLValues())
	if err != nil {
		m.client.obs.roundTrip("search", start, -1, err)
		return nil, fmt.Errorf("search: %w", err)
	}
	m.client.obs.roundTrip("search", start, resp.Body.NumFound, nil)
	m.last = resp
	return &Result{
		NumFound: resp.Body.NumFound,
		Start:    resp.Body.Start,
		QTime:    resp.Header.QTime,
		Docs:     resp.Body.Docs,
	}, nil
}

func (m *Manager) shape() facet.ResponseShape {
	if p := m.store.Get(facet.ShapeParam); p != nil {
		return facet.ParseShape(p.Val())
	}
	return facet.ShapeFlat
}
