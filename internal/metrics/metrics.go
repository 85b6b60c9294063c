package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcome labels.
const (
	StatusSuccess       = "success"
	StatusModelError    = "model_error"
	StatusSchemaError   = "schema_error"
	StatusStoreError    = "store_error"
	StatusConfigError   = "config_error"
	StatusInternalError = "internal_error"
)

// NewRegistry returns a private registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Generation tracks story generations. A nil *Generation records nothing.
type Generation struct {
	total    *prometheus.CounterVec
	duration prometheus.Histogram
	nodes    prometheus.Histogram
}

// NewGeneration registers the generation metrics on reg.
func NewGeneration(reg prometheus.Registerer) *Generation {
	f := promauto.With(reg)
	return &Generation{
		total: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_generations_total",
			Help: "Total number of story generations, partitioned by outcome.",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "story_generation_duration_seconds",
			Help:    "Histogram of end-to-end story generation durations.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 240},
		}),
		nodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "story_generation_nodes",
			Help:    "Histogram of node counts of persisted stories.",
			Buckets: prometheus.LinearBuckets(5, 5, 12),
		}),
	}
}

// Observe records one generation.
func (g *Generation) Observe(status string, took time.Duration, nodes int) {
	if g == nil {
		return
	}
	g.total.WithLabelValues(status).Inc()
	g.duration.Observe(took.Seconds())
	if status == StatusSuccess {
		g.nodes.Observe(float64(nodes))
	}
}
