package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records model calls. A nil *Metrics records nothing.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	promptTokens     *prometheus.HistogramVec
	completionTokens *prometheus.HistogramVec
}

// NewMetrics registers the model metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		}, []string{"model", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "story_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"model"}),
		promptTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "story_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		}, []string{"model"}),
		completionTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "story_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		}, []string{"model"}),
	}
}

func (m *Metrics) failure(model, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(model, status).Inc()
}

func (m *Metrics) success(model string, took time.Duration, usage Usage) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(model, "success").Inc()
	m.duration.WithLabelValues(model).Observe(took.Seconds())
	if usage.TotalTokens > 0 {
		m.promptTokens.WithLabelValues(model).Observe(float64(usage.PromptTokens))
		m.completionTokens.WithLabelValues(model).Observe(float64(usage.CompletionTokens))
	}
}
