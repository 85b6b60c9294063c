package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"story-server/internal/store"
)

// MockSession is a mock type for the store.Session type
type MockSession struct {
	mock.Mock
}

// Add provides a mock function with given fields: record
func (_m *MockSession) Add(record any) {
	_m.Called(record)
}

// Flush provides a mock function with given fields: ctx
func (_m *MockSession) Flush(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Commit provides a mock function with given fields: ctx
func (_m *MockSession) Commit(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Rollback provides a mock function with given fields: ctx
func (_m *MockSession) Rollback(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewMockSession creates a new instance of MockSession. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSession {
	m := &MockSession{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ store.Session = (*MockSession)(nil)
