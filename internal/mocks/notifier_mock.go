package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"story-server/internal/messaging"
)

// MockNotifier is a mock type for the messaging.Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, n
func (_m *MockNotifier) Notify(ctx context.Context, n messaging.StoryNotification) error {
	ret := _m.Called(ctx, n)
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockTaskPublisher is a mock type for the messaging.TaskPublisher type
type MockTaskPublisher struct {
	mock.Mock
}

// PublishTask provides a mock function with given fields: ctx, task
func (_m *MockTaskPublisher) PublishTask(ctx context.Context, task messaging.GenerationTask) error {
	ret := _m.Called(ctx, task)
	return ret.Error(0)
}

// NewMockTaskPublisher creates a new instance of MockTaskPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTaskPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTaskPublisher {
	m := &MockTaskPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ messaging.Notifier      = (*MockNotifier)(nil)
	_ messaging.TaskPublisher = (*MockTaskPublisher)(nil)
)
