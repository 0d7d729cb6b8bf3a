package solrfacet

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	core       string
	httpClient *http.Client
	timeout    time.Duration
	defaults   []Param

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// Param is a query parameter every new Manager starts with.
type Param struct {
	Name  string
	Value string
}

// WithSolr sets the Solr base URL (e.g. http://localhost:8983/solr) and core.
func WithSolr(baseURL, core string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
		c.core = core
	})
}

// WithHTTPClient sets the HTTP client used for Solr requests.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request Solr timeout when no HTTP client is given.
// Default: 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithDefaults adds parameters (q, rows, json.nl, ...) to every new Manager.
func WithDefaults(params ...Param) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaults = append(c.defaults, params...)
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
