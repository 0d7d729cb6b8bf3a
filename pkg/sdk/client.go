package solrfacet

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kailas-cloud/solrfacet/internal/domain/response"
	solrTransport "github.com/kailas-cloud/solrfacet/internal/transport/solr"
)

const defaultTimeout = 10 * time.Second

// backend is the search transport, swapped out in tests.
type backend interface {
	Select(ctx context.Context, params url.Values) (*response.Response, error)
	Ping(ctx context.Context) error
}

// Client is the solrfacet SDK entry point. It is safe for concurrent use;
// Managers created from it are independent.
type Client struct {
	backend  backend
	defaults []Param
	obs      *observer
}

// New creates a Client for one Solr core.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" || cfg.core == "" {
		return nil, errors.New("solrfacet: solr base url and core required (use WithSolr)")
	}

	solr, err := solrTransport.New(solrTransport.Config{
		BaseURL: cfg.baseURL,
		Core:    cfg.core,
		Timeout: cfg.timeout,
	}, cfg.httpClient, nil)
	if err != nil {
		return nil, fmt.Errorf("solrfacet: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{backend: solr, defaults: cfg.defaults, obs: obs}, nil
}

// Ping checks that the Solr core answers.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.backend.Ping(ctx)
	c.obs.roundTrip("ping", start, -1, err)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// NewManager returns a Manager seeded with the client's default parameters.
func (c *Client) NewManager() *Manager {
	return newManager(c)
}
