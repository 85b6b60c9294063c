//go:build integration

package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"story-server/internal/generator"
	"story-server/internal/messaging"
	"story-server/internal/mocks"
	"story-server/internal/schema"
	"story-server/internal/worker"
)

type QueueIntegrationSuite struct {
	suite.Suite
	container *rabbitmq.RabbitMQContainer
	conn      *amqp.Connection
	ch        *amqp.Channel
	topology  messaging.Topology
}

func TestQueueIntegration(t *testing.T) {
	suite.Run(t, new(QueueIntegrationSuite))
}

func (s *QueueIntegrationSuite) SetupSuite() {
	ctx := context.Background()
	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server startup complete")),
	)
	require.NoError(s.T(), err)
	s.container = container

	url, err := container.AmqpURL(ctx)
	require.NoError(s.T(), err)
	s.conn, err = messaging.Connect(ctx, url, 5, time.Second, zap.NewNop())
	require.NoError(s.T(), err)
	s.ch, err = s.conn.Channel()
	require.NoError(s.T(), err)

	s.topology = messaging.Topology{TaskQueue: "story_generation_tasks", NotificationQueue: "story_notifications"}
	require.NoError(s.T(), s.topology.Declare(s.ch))
	require.NoError(s.T(), s.topology.Declare(s.ch), "declare must be idempotent")
}

func (s *QueueIntegrationSuite) TearDownSuite() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.container != nil {
		require.NoError(s.T(), s.container.Terminate(context.Background()))
	}
}

func (s *QueueIntegrationSuite) consumer(model *mocks.MockModel) *worker.Consumer {
	gen := generator.New(model, schema.Limits{}, zap.NewNop())
	notifier := messaging.NewRabbitMQNotifier(s.ch, s.topology.NotificationQueue, zap.NewNop())
	handler := worker.NewTaskHandler(&mocks.MemoryFactory{}, gen, notifier, nil, zap.NewNop())
	return worker.NewConsumer(handler, nil, zap.NewNop())
}

// next waits for one message on queue.
func (s *QueueIntegrationSuite) next(queue string) amqp.Delivery {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := s.ch.Get(queue, true)
		require.NoError(s.T(), err)
		if ok {
			return msg
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.T().Fatalf("no message on %s", queue)
	return amqp.Delivery{}
}

func (s *QueueIntegrationSuite) TestTaskProducesNotification() {
	ctx := context.Background()
	model := mocks.NewMockModel(s.T())
	model.On("Invoke", mock.Anything, mock.Anything).Return(storyJSON, nil).Once()

	publisher := messaging.NewRabbitMQTaskPublisher(s.ch, s.topology.TaskQueue, zap.NewNop())
	require.NoError(s.T(), publisher.PublishTask(ctx, messaging.GenerationTask{
		TaskID: testTaskID, SessionID: testSessionID, Theme: "pirates",
	}))

	task := s.next(s.topology.TaskQueue)
	task.Acknowledger = &ackRecorder{}
	s.consumer(model).Process(ctx, task)
	s.True(task.Acknowledger.(*ackRecorder).acked)

	msg := s.next(s.topology.NotificationQueue)
	s.Equal("application/json", msg.ContentType)

	var n messaging.StoryNotification
	require.NoError(s.T(), json.Unmarshal(msg.Body, &n))
	s.Equal(testTaskID, n.TaskID)
	s.Equal(testSessionID, n.SessionID)
	s.Equal(messaging.NotificationStatusSuccess, n.Status)
	s.Equal("T", n.Title)
	s.NotZero(n.StoryID)
}

func (s *QueueIntegrationSuite) TestMalformedTaskIsDeadLettered() {
	ctx := context.Background()
	require.NoError(s.T(), s.ch.PublishWithContext(ctx, "", s.topology.TaskQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        []byte(`{not json`),
	}))

	msg, ok, err := s.ch.Get(s.topology.TaskQueue, false)
	require.NoError(s.T(), err)
	require.True(s.T(), ok)
	s.consumer(mocks.NewMockModel(s.T())).Process(ctx, msg)

	dead := s.next(s.topology.DeadLetterQueue())
	s.Equal(`{not json`, string(dead.Body))
}
