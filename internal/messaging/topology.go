package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dlqRoutingKey = "dlq"

// Topology names the queues the service uses. Rejected tasks are
// dead-lettered to TaskQueue+"_dlx" and end up in TaskQueue+"_dlq".
type Topology struct {
	TaskQueue         string
	NotificationQueue string
}

func (t Topology) DeadLetterExchange() string { return t.TaskQueue + "_dlx" }

func (t Topology) DeadLetterQueue() string { return t.TaskQueue + "_dlq" }

// Declarer is the part of *amqp.Channel used to declare the topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare creates the dead letter exchange and queue, the durable task queue
// pointing at them and the notification queue. It is idempotent.
func (t Topology) Declare(ch Declarer) error {
	dlx, dlq := t.DeadLetterExchange(), t.DeadLetterQueue()

	if err := ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX '%s': %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ '%s': %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlqRoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ '%s' to '%s': %w", dlq, dlx, err)
	}

	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := ch.QueueDeclare(t.TaskQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", t.TaskQueue, err)
	}
	if _, err := ch.QueueDeclare(t.NotificationQueue, true, false, false, false, amqp.Table{"x-queue-mode": "lazy"}); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", t.NotificationQueue, err)
	}
	return nil
}
