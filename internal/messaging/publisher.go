package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const appID = "story-server"

// Channel is the part of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Notifier reports finished generation tasks.
type Notifier interface {
	Notify(ctx context.Context, n StoryNotification) error
}

// TaskPublisher enqueues generation tasks.
type TaskPublisher interface {
	PublishTask(ctx context.Context, task GenerationTask) error
}

func publishJSON(ctx context.Context, ch Channel, queue, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", messageID, err)
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
		AppId:        appID,
		MessageId:    messageID,
	})
}

// RabbitMQNotifier publishes StoryNotification messages to a queue.
type RabbitMQNotifier struct {
	ch     Channel
	queue  string
	logger *zap.Logger
}

func NewRabbitMQNotifier(ch Channel, queue string, logger *zap.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{ch: ch, queue: queue, logger: logger.Named("Notifier")}
}

func (n *RabbitMQNotifier) Notify(ctx context.Context, notification StoryNotification) error {
	log := n.logger.With(zap.String("taskID", notification.TaskID), zap.String("status", string(notification.Status)))
	if err := publishJSON(ctx, n.ch, n.queue, notification.TaskID+"-notif", notification); err != nil {
		log.Error("Failed to publish notification", zap.Error(err))
		return fmt.Errorf("failed to publish notification for task %s: %w", notification.TaskID, err)
	}
	log.Info("Notification published", zap.String("queue", n.queue))
	return nil
}

// RabbitMQTaskPublisher publishes GenerationTask messages to the task queue.
type RabbitMQTaskPublisher struct {
	ch     Channel
	queue  string
	logger *zap.Logger
}

func NewRabbitMQTaskPublisher(ch Channel, queue string, logger *zap.Logger) *RabbitMQTaskPublisher {
	return &RabbitMQTaskPublisher{ch: ch, queue: queue, logger: logger.Named("TaskPublisher")}
}

func (p *RabbitMQTaskPublisher) PublishTask(ctx context.Context, task GenerationTask) error {
	if err := publishJSON(ctx, p.ch, p.queue, task.TaskID, task); err != nil {
		p.logger.Error("Failed to publish generation task", zap.String("taskID", task.TaskID), zap.Error(err))
		return fmt.Errorf("failed to publish task %s: %w", task.TaskID, err)
	}
	p.logger.Info("Generation task published", zap.String("taskID", task.TaskID), zap.String("sessionID", task.SessionID))
	return nil
}

var (
	_ Notifier      = (*RabbitMQNotifier)(nil)
	_ TaskPublisher = (*RabbitMQTaskPublisher)(nil)
)
