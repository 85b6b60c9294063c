package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts processed tasks. A nil *Metrics records nothing.
type Metrics struct {
	received  prometheus.Counter
	failed    *prometheus.CounterVec
	succeeded prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		received: f.NewCounter(prometheus.CounterOpts{
			Name: "story_worker_tasks_received_total",
			Help: "Total number of tasks received by the story worker.",
		}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_worker_tasks_failed_total",
			Help: "Total number of tasks failed, partitioned by failure reason.",
		}, []string{"reason"}),
		succeeded: f.NewCounter(prometheus.CounterOpts{
			Name: "story_worker_tasks_succeeded_total",
			Help: "Total number of tasks successfully processed.",
		}),
	}
}

func (m *Metrics) taskReceived() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *Metrics) taskFailed(reason string) {
	if m != nil {
		m.failed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) taskSucceeded() {
	if m != nil {
		m.succeeded.Inc()
	}
}
