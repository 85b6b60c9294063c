package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"story-server/internal/llm"
)

// MockModel is a mock type for the llm.Model type
type MockModel struct {
	mock.Mock
}

// Invoke provides a mock function with given fields: ctx, prompt
func (_m *MockModel) Invoke(ctx context.Context, prompt string) (any, error) {
	ret := _m.Called(ctx, prompt)

	var r0 any
	if rf, ok := ret.Get(0).(func(context.Context, string) any); ok {
		r0 = rf(ctx, prompt)
	} else {
		r0 = ret.Get(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, prompt)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockModel creates a new instance of MockModel. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockModel(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockModel {
	m := &MockModel{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ llm.Model = (*MockModel)(nil)
