// Package solr is the HTTP client for a Solr core's select and ping handlers.
package solr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/response"
	"github.com/kailas-cloud/solrfacet/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	// Queries longer than this go out as a form POST.
	maxGETQuery = 4096
	maxBodySize = 64 << 20
)

// Config holds connection parameters for a Solr core.
type Config struct {
	BaseURL string
	Core    string
	Timeout time.Duration
}

// Client issues select requests. Identical concurrent queries share one
// round trip.
type Client struct {
	http   *http.Client
	base   string
	core   string
	logger *zap.Logger
	group  singleflight.Group
}

// New creates a client for <BaseURL>/<Core>. httpClient and logger may be nil.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("solr base url is required")
	}
	if cfg.Core == "" {
		return nil, fmt.Errorf("solr core is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse solr base url: %w", err)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   httpClient,
		base:   strings.TrimRight(cfg.BaseURL, "/") + "/" + url.PathEscape(cfg.Core),
		core:   cfg.Core,
		logger: logger.With(zap.String("core", cfg.Core)),
	}, nil
}

// Select runs a query. wt=json is always sent.
func (c *Client) Select(ctx context.Context, params url.Values) (*response.Response, error) {
	q := make(url.Values, len(params)+1)
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set("wt", "json")
	query := q.Encode()

	v, err, shared := c.group.Do(query, func() (any, error) {
		return c.selectOnce(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("select coalesced")
	}
	return v.(*response.Response), nil
}

func (c *Client) selectOnce(ctx context.Context, query string) (*response.Response, error) {
	start := time.Now()
	resp, err := c.doSelect(ctx, query)
	metrics.SolrRequestDuration.WithLabelValues(c.core).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		c.logger.Warn("solr select failed", zap.Error(err))
	}
	metrics.SolrRequestsTotal.WithLabelValues(c.core, status).Inc()
	return resp, err
}

func (c *Client) doSelect(ctx context.Context, query string) (*response.Response, error) {
	var (
		req *http.Request
		err error
	)
	if len(query) > maxGETQuery {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/select", strings.NewReader(query))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/select?"+query, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build select request: %w", err)
	}

	body, code, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}

	r, decErr := response.Decode(body)
	if code < 200 || code >= 300 {
		msg := http.StatusText(code)
		if decErr == nil && r.Error != nil && r.Error.Msg != "" {
			msg = r.Error.Msg
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrBackend, code, msg)
	}
	if decErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackend, decErr)
	}
	if r.Header.Status != 0 {
		return nil, fmt.Errorf("%w: response status %d", domain.ErrBackend, r.Header.Status)
	}
	return r, nil
}

// Ping calls the core's admin/ping handler.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/admin/ping?wt=json", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	body, code, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: ping status %d", domain.ErrBackend, code)
	}
	var ping struct {
		Status string `json:"status"`
	}
	if err := sonic.Unmarshal(body, &ping); err != nil {
		return fmt.Errorf("%w: decode ping: %w", domain.ErrBackend, err)
	}
	if !strings.EqualFold(ping.Status, "OK") {
		return fmt.Errorf("%w: ping status %q", domain.ErrBackend, ping.Status)
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, int, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %w", domain.ErrBackend, err)
	}
	return body, resp.StatusCode, nil
}
