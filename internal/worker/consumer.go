package worker

import (
	"context"
	"encoding/json"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"story-server/internal/messaging"
)

// Consumer feeds deliveries of the task queue to a TaskHandler, one at a time.
type Consumer struct {
	handler *TaskHandler
	metrics *Metrics
	logger  *zap.Logger
}

func NewConsumer(handler *TaskHandler, metrics *Metrics, logger *zap.Logger) *Consumer {
	return &Consumer{handler: handler, metrics: metrics, logger: logger.Named("TaskConsumer")}
}

// Run processes deliveries until the channel closes or ctx is done.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer")
			return
		case msg, ok := <-deliveries:
			if !ok {
				c.logger.Info("Delivery channel closed, stopping consumer")
				return
			}
			c.Process(ctx, msg)
		}
	}
}

// Process handles a single delivery. Malformed payloads and handler errors
// are nacked without requeue so they are dead-lettered.
func (c *Consumer) Process(ctx context.Context, msg amqp.Delivery) {
	c.metrics.taskReceived()

	var task messaging.GenerationTask
	if err := json.Unmarshal(msg.Body, &task); err != nil || strings.TrimSpace(task.TaskID) == "" {
		c.logger.Error("Malformed task payload, rejecting", zap.Error(err), zap.Int("bodyBytes", len(msg.Body)))
		c.metrics.taskFailed("deserialization")
		c.nack(msg)
		return
	}

	if err := c.handler.Handle(ctx, task); err != nil {
		c.logger.Error("Task handling failed, rejecting", zap.String("taskID", task.TaskID), zap.Error(err))
		c.nack(msg)
		return
	}
	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message", zap.String("taskID", task.TaskID), zap.Error(err))
	}
}

func (c *Consumer) nack(msg amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack message", zap.Error(err))
	}
}
