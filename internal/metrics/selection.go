package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Selection and backend Prometheus metrics.
var (
	SelectionChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrfacet",
			Name:      "selection_changes_total",
			Help:      "Selection mutations that changed the filter queries",
		},
		[]string{"op", "mode"},
	)

	FacetDecodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrfacet",
			Name:      "facet_decode_total",
			Help:      "Facet count decodes by response shape and outcome",
		},
		[]string{"shape", "status"},
	)

	SolrRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solrfacet",
			Name:      "solr_request_duration_seconds",
			Help:      "Solr select request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"core"},
	)

	SolrRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrfacet",
			Name:      "solr_requests_total",
			Help:      "Solr select requests by outcome",
		},
		[]string{"core", "status"},
	)

	SelectionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrfacet",
			Name:      "selection_events_total",
			Help:      "Selection events published to the event bus",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register registers all service metrics on the default registry. Called from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestDuration)
		prometheus.MustRegister(httpRequestsTotal)
		prometheus.MustRegister(httpRequestsInFlight)
		prometheus.MustRegister(SelectionChangesTotal)
		prometheus.MustRegister(FacetDecodeTotal)
		prometheus.MustRegister(SolrRequestDuration)
		prometheus.MustRegister(SolrRequestsTotal)
		prometheus.MustRegister(SelectionEventsTotal)
	})
}
