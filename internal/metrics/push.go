package metrics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Pusher periodically pushes a registry to a Pushgateway for short-lived or
// unscraped workers.
type Pusher struct {
	pusher *push.Pusher
	logger *zap.Logger
}

// NewPusher creates a pusher for job, grouped by host and pid.
func NewPusher(url, job string, reg prometheus.Gatherer, logger *zap.Logger) *Pusher {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	instance := fmt.Sprintf("%s-%d", host, os.Getpid())
	return &Pusher{
		pusher: push.New(url, job).Gatherer(reg).Grouping("instance", instance),
		logger: logger.Named("MetricsPusher").With(zap.String("job", job), zap.String("instance", instance)),
	}
}

// Push sends the current values once.
func (p *Pusher) Push() error {
	if err := p.pusher.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Run pushes every interval until ctx is done, then deletes the group.
func (p *Pusher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := p.pusher.Delete(); err != nil {
				p.logger.Warn("Failed to delete metrics from Pushgateway", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := p.Push(); err != nil {
				p.logger.Warn("Failed to push metrics", zap.Error(err))
			}
		}
	}
}
