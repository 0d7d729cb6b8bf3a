package solrfacet

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
)

// sdkMetrics holds the SDK's prometheus collectors.
type sdkMetrics struct {
	searches   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	selections *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solrfacet",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Solr round trips (search, ping) by status.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solrfacet",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "Solr round trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solrfacet",
			Subsystem: "sdk",
			Name:      "selections_total",
			Help:      "Widget selection operations by widget, op and result (changed, unchanged, error).",
		}, []string{"widget", "op", "result"}),
	}
	if err := registerOrReuse(reg, &m.searches); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.selections); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so several
// clients can share a registerer.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("solrfacet: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("solrfacet: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// roundTrip records a search or ping against Solr. numFound is logged for
// searches and ignored when negative.
func (o *observer) roundTrip(op string, start time.Time, numFound int64, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.searches.WithLabelValues(op, status).Inc()
		o.metrics.latency.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	args := []any{"op", op, "duration", dur}
	if numFound >= 0 {
		args = append(args, "num_found", numFound)
	}
	if err != nil {
		o.logger.Warn("solr request failed", append(args, "error", err)...)
		return
	}
	o.logger.Debug("solr request", args...)
}

// selection records one widget operation and its effect on the query.
func (o *observer) selection(w facet.Widget, op, value string, changed bool, err error) {
	if o == nil {
		return
	}
	result := "unchanged"
	switch {
	case err != nil:
		result = "error"
	case changed:
		result = "changed"
	}
	if o.metrics != nil {
		o.metrics.selections.WithLabelValues(w.ID(), op, result).Inc()
	}
	if o.logger == nil {
		return
	}
	log := o.logger.With("widget", w.ID(), "field", w.Field(), "mode", w.Mode().String())
	if err != nil {
		log.Warn("selection rejected", "op", op, "value", value, "error", err)
		return
	}
	log.Debug("selection", "op", op, "value", value, "changed", changed)
}
