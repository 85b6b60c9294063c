package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-server/internal/generator"
	"story-server/internal/messaging"
	"story-server/internal/mocks"
	"story-server/internal/schema"
	"story-server/internal/worker"
)

const (
	testTaskID    = "task-456"
	testSessionID = "session-123"
	storyJSON     = `{"title": "T", "rootNode": {"content": "Start", "isEnding": false, "isWinningEnding": false,
		"options": [{"text": "Go", "nextNode": {"content": "End", "isEnding": true, "isWinningEnding": true}}]}}`
)

type ackRecorder struct {
	acked, nacked, requeued bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(body string) (amqp.Delivery, *ackRecorder) {
	ack := &ackRecorder{}
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body), DeliveryTag: 1}, ack
}

type fixture struct {
	model    *mocks.MockModel
	notifier *mocks.MockNotifier
	sessions *mocks.MemoryFactory
	consumer *worker.Consumer
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		model:    mocks.NewMockModel(t),
		notifier: mocks.NewMockNotifier(t),
		sessions: &mocks.MemoryFactory{},
	}
	gen := generator.New(f.model, schema.Limits{}, zap.NewNop())
	handler := worker.NewTaskHandler(f.sessions, gen, f.notifier, nil, zap.NewNop())
	f.consumer = worker.NewConsumer(handler, nil, zap.NewNop())
	return f
}

func TestConsumer_Process_Success(t *testing.T) {
	f := newFixture(t)
	f.model.On("Invoke", mock.Anything, mock.Anything).Return(storyJSON, nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.AnythingOfType("messaging.StoryNotification")).
		Return(nil).Once().Run(func(args mock.Arguments) {
		n := args.Get(1).(messaging.StoryNotification)
		assert.Equal(t, testTaskID, n.TaskID)
		assert.Equal(t, testSessionID, n.SessionID)
		assert.Equal(t, messaging.NotificationStatusSuccess, n.Status)
		assert.NotZero(t, n.StoryID)
		assert.Equal(t, "T", n.Title)
		assert.Empty(t, n.ErrorDetails)
	})

	msg, ack := delivery(`{"task_id": "task-456", "session_id": "session-123", "theme": "space"}`)
	f.consumer.Process(context.Background(), msg)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	require.Len(t, f.sessions.Sessions, 1)
	assert.True(t, f.sessions.Sessions[0].Committed)
	assert.Len(t, f.sessions.Sessions[0].Nodes, 2)
}

func TestConsumer_Process_GenerationFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.model.On("Invoke", mock.Anything, mock.Anything).Return(`{"title": ""}`, nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.StoryNotification) bool {
		return n.Status == messaging.NotificationStatusError && n.ErrorDetails != "" && n.StoryID == 0
	})).Return(nil).Once()

	msg, ack := delivery(`{"task_id": "task-456", "session_id": "session-123", "theme": "space"}`)
	f.consumer.Process(context.Background(), msg)

	assert.True(t, ack.acked)
	require.Len(t, f.sessions.Sessions, 1)
	assert.False(t, f.sessions.Sessions[0].Committed)
	assert.Empty(t, f.sessions.Sessions[0].Nodes)
}

func TestConsumer_Process_MalformedPayload(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     "{{{",
		"missing task": `{"session_id": "s"}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			msg, ack := delivery(body)
			f.consumer.Process(context.Background(), msg)

			assert.True(t, ack.nacked)
			assert.False(t, ack.requeued)
			assert.False(t, ack.acked)
			assert.Empty(t, f.sessions.Sessions)
		})
	}
}

func TestConsumer_Process_NotifyFailureNacks(t *testing.T) {
	f := newFixture(t)
	f.model.On("Invoke", mock.Anything, mock.Anything).Return(storyJSON, nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(amqp.ErrClosed).Once()

	msg, ack := delivery(`{"task_id": "task-456", "session_id": "session-123"}`)
	f.consumer.Process(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
}

func TestTaskHandler_SessionFailure(t *testing.T) {
	f := newFixture(t)
	f.sessions.Err = errors.New("pool closed")
	handler := worker.NewTaskHandler(f.sessions, generator.New(f.model, schema.Limits{}, zap.NewNop()), f.notifier, nil, zap.NewNop())

	err := handler.Handle(context.Background(), messaging.GenerationTask{TaskID: testTaskID})
	assert.Error(t, err)
}

func TestConsumer_Run_StopsWhenChannelCloses(t *testing.T) {
	f := newFixture(t)
	deliveries := make(chan amqp.Delivery, 1)
	msg, ack := delivery("bad")
	deliveries <- msg
	close(deliveries)

	f.consumer.Run(context.Background(), deliveries)
	assert.True(t, ack.nacked)
}

func TestTaskHandler_NoModelReportsConfigurationError(t *testing.T) {
	notifier := mocks.NewMockNotifier(t)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.StoryNotification) bool {
		return n.Status == messaging.NotificationStatusError && strings.Contains(n.ErrorDetails, "no AI model configured")
	})).Return(nil).Once()

	handler := worker.NewTaskHandler(&mocks.MemoryFactory{}, generator.New(nil, schema.Limits{}, zap.NewNop()), notifier, nil, zap.NewNop())
	require.NoError(t, handler.Handle(context.Background(), messaging.GenerationTask{TaskID: testTaskID}))
}
