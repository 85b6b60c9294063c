package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"story-server/internal/models"
)

// MockStoryReader is a mock type for the api.StoryReader type
type MockStoryReader struct {
	mock.Mock
}

// GetStory provides a mock function with given fields: ctx, id
func (_m *MockStoryReader) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	ret := _m.Called(ctx, id)
	var r0 *models.Story
	if v := ret.Get(0); v != nil {
		r0 = v.(*models.Story)
	}
	return r0, ret.Error(1)
}

// ListBySession provides a mock function with given fields: ctx, sessionID
func (_m *MockStoryReader) ListBySession(ctx context.Context, sessionID string) ([]*models.Story, error) {
	ret := _m.Called(ctx, sessionID)
	var r0 []*models.Story
	if v := ret.Get(0); v != nil {
		r0 = v.([]*models.Story)
	}
	return r0, ret.Error(1)
}

// DeleteStory provides a mock function with given fields: ctx, id
func (_m *MockStoryReader) DeleteStory(ctx context.Context, id int64) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockStoryReader creates a new instance of MockStoryReader. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryReader(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryReader {
	m := &MockStoryReader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
