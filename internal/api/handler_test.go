package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-server/internal/api"
	"story-server/internal/generator"
	"story-server/internal/llm"
	"story-server/internal/messaging"
	"story-server/internal/mocks"
	"story-server/internal/models"
	"story-server/internal/schema"
)

const (
	testSession = "session-abc"
	storyJSON   = `{"title": "The Cave", "rootNode": {"content": "You stand at the entrance.", "isEnding": false, "isWinningEnding": false,
		"options": [
			{"text": "Enter", "nextNode": {"content": "Treasure!", "isEnding": true, "isWinningEnding": true}},
			{"text": "Leave", "nextNode": {"content": "You go home.", "isEnding": true, "isWinningEnding": false}}
		]}}`
)

type fixture struct {
	model    *mocks.MockModel
	sessions *mocks.MemoryFactory
	stories  *mocks.MockStoryReader
	tasks    *mocks.MockTaskPublisher
	router   *gin.Engine
}

func newFixture(t *testing.T, withModel, withQueue bool) *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		sessions: &mocks.MemoryFactory{},
		stories:  mocks.NewMockStoryReader(t),
	}
	var model llm.Model
	if withModel {
		f.model = mocks.NewMockModel(t)
		model = f.model
	}
	var tasks messaging.TaskPublisher
	if withQueue {
		f.tasks = mocks.NewMockTaskPublisher(t)
		tasks = f.tasks
	}
	gen := generator.New(model, schema.Limits{}, zap.NewNop())
	h := api.NewHandler(gen, f.sessions, f.stories, tasks, zap.NewNop())
	f.router = api.NewRouter(nil, zap.NewNop())
	h.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: testSession})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func storedStory() *models.Story {
	return &models.Story{
		ID:        7,
		Title:     "The Cave",
		SessionID: testSession,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Nodes: []*models.StoryNode{
			{ID: 10, StoryID: 7, Content: "Start", IsRoot: true, Options: []models.NodeOption{{Text: "Go", NodeID: 11}}},
			{ID: 11, StoryID: 7, Content: "End", IsEnding: true, IsWinningEnding: true, Options: []models.NodeOption{}},
		},
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, true, false)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateStory_Success(t *testing.T) {
	f := newFixture(t, true, false)
	f.model.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasSuffix(p, "Create the story with this theme: caves")
	})).Return(storyJSON, nil).Once()

	w := f.do(t, http.MethodPost, "/api/stories/create", `{"theme": "caves"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.CompleteStoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The Cave", resp.Title)
	assert.Equal(t, testSession, resp.SessionID)
	assert.Equal(t, "You stand at the entrance.", resp.RootNode.Content)
	require.Len(t, resp.RootNode.Options, 2)
	assert.Equal(t, "Enter", resp.RootNode.Options[0].Text)
	assert.Equal(t, "Leave", resp.RootNode.Options[1].Text)
	assert.Len(t, resp.AllNodes, 3)

	for _, opt := range resp.RootNode.Options {
		child, ok := resp.AllNodes[strconv.FormatInt(opt.NodeID, 10)]
		require.True(t, ok, "option %q points at a missing node", opt.Text)
		assert.True(t, child.IsEnding)
		assert.Empty(t, child.Options)
	}

	require.Len(t, f.sessions.Sessions, 1)
	assert.True(t, f.sessions.Sessions[0].Committed)
}

func TestCreateStory_IssuesSessionCookie(t *testing.T) {
	f := newFixture(t, true, false)
	f.model.On("Invoke", mock.Anything, mock.Anything).Return(storyJSON, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/stories/create", strings.NewReader(`{"theme": "caves"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == api.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)

	var resp api.CompleteStoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, cookie.Value, resp.SessionID)
}

func TestCreateStory_InvalidBody(t *testing.T) {
	f := newFixture(t, true, false)

	for _, body := range []string{`{}`, `{"theme": "   "}`, `not json`} {
		w := f.do(t, http.MethodPost, "/api/stories/create", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, api.ErrCodeBadRequest, decodeError(t, w).Code)
	}
	assert.Empty(t, f.sessions.Sessions)
}

func TestCreateStory_InvalidReply(t *testing.T) {
	f := newFixture(t, true, false)
	f.model.On("Invoke", mock.Anything, mock.Anything).
		Return(`{"rootNode": {"content": "x", "isEnding": true, "isWinningEnding": false}}`, nil).Once()

	w := f.do(t, http.MethodPost, "/api/stories/create", `{"theme": "caves"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, api.ErrCodeInvalidStory, decodeError(t, w).Code)

	require.Len(t, f.sessions.Sessions, 1)
	sess := f.sessions.Sessions[0]
	assert.False(t, sess.Committed)
	assert.Zero(t, sess.Inserts)
}

func TestCreateStory_ModelFailure(t *testing.T) {
	f := newFixture(t, true, false)
	f.model.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, errors.Join(llm.ErrModelFailed, errors.New("timeout"))).Once()

	w := f.do(t, http.MethodPost, "/api/stories/create", `{"theme": "caves"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, api.ErrCodeModelFailed, decodeError(t, w).Code)
}

func TestCreateStory_NoModel(t *testing.T) {
	f := newFixture(t, false, false)

	w := f.do(t, http.MethodPost, "/api/stories/create", `{"theme": "caves"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, api.ErrCodeUnavailable, decodeError(t, w).Code)
	require.Len(t, f.sessions.Sessions, 1)
	assert.True(t, f.sessions.Sessions[0].RolledBack)
}

func TestCreateStory_BeginFailure(t *testing.T) {
	f := newFixture(t, true, false)
	f.sessions.Err = errors.Join(models.ErrStore, errors.New("connection refused"))

	w := f.do(t, http.MethodPost, "/api/stories/create", `{"theme": "caves"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, api.ErrCodeInternalError, decodeError(t, w).Code)
}

func TestGetCompleteStory(t *testing.T) {
	f := newFixture(t, true, false)
	f.stories.On("GetStory", mock.Anything, int64(7)).Return(storedStory(), nil).Once()

	w := f.do(t, http.MethodGet, "/api/stories/7/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": 7,
		"title": "The Cave",
		"session_id": "session-abc",
		"created_at": "2025-01-02T03:04:05Z",
		"root_node": {"id": 10, "content": "Start", "is_ending": false, "is_winning_ending": false,
			"options": [{"text": "Go", "node_id": 11}]},
		"all_nodes": {
			"10": {"id": 10, "content": "Start", "is_ending": false, "is_winning_ending": false,
				"options": [{"text": "Go", "node_id": 11}]},
			"11": {"id": 11, "content": "End", "is_ending": true, "is_winning_ending": true, "options": []}
		}
	}`, w.Body.String())
}

func TestGetCompleteStory_NotFound(t *testing.T) {
	f := newFixture(t, true, false)
	f.stories.On("GetStory", mock.Anything, int64(99)).Return(nil, models.ErrNotFound).Once()

	w := f.do(t, http.MethodGet, "/api/stories/99/complete", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.ErrCodeNotFound, decodeError(t, w).Code)
}

func TestGetCompleteStory_BadID(t *testing.T) {
	f := newFixture(t, true, false)

	for _, id := range []string{"abc", "0", "-3"} {
		w := f.do(t, http.MethodGet, "/api/stories/"+id+"/complete", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestListStories(t *testing.T) {
	f := newFixture(t, true, false)
	f.stories.On("ListBySession", mock.Anything, testSession).Return([]*models.Story{storedStory()}, nil).Once()

	w := f.do(t, http.MethodGet, "/api/stories", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []api.StorySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(7), resp[0].ID)
	assert.Equal(t, "The Cave", resp[0].Title)
}

func TestListStories_Empty(t *testing.T) {
	f := newFixture(t, true, false)
	f.stories.On("ListBySession", mock.Anything, testSession).Return(nil, nil).Once()

	w := f.do(t, http.MethodGet, "/api/stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDeleteStory(t *testing.T) {
	f := newFixture(t, true, false)
	f.stories.On("GetStory", mock.Anything, int64(7)).Return(storedStory(), nil).Once()
	f.stories.On("DeleteStory", mock.Anything, int64(7)).Return(nil).Once()

	w := f.do(t, http.MethodDelete, "/api/stories/7", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteStory_OtherSession(t *testing.T) {
	f := newFixture(t, true, false)
	story := storedStory()
	story.SessionID = "someone-else"
	f.stories.On("GetStory", mock.Anything, int64(7)).Return(story, nil).Once()

	w := f.do(t, http.MethodDelete, "/api/stories/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	f.stories.AssertNotCalled(t, "DeleteStory", mock.Anything, mock.Anything)
}

func TestQueueStory(t *testing.T) {
	f := newFixture(t, true, true)
	var published messaging.GenerationTask
	f.tasks.On("PublishTask", mock.Anything, mock.AnythingOfType("messaging.GenerationTask")).
		Return(nil).Once().Run(func(args mock.Arguments) {
		published = args.Get(1).(messaging.GenerationTask)
	})

	w := f.do(t, http.MethodPost, "/api/stories/queue", `{"theme": "space"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp api.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, resp.TaskID, published.TaskID)
	assert.Equal(t, testSession, published.SessionID)
	assert.Equal(t, "space", published.Theme)
}

func TestQueueStory_NotConfigured(t *testing.T) {
	f := newFixture(t, true, false)

	w := f.do(t, http.MethodPost, "/api/stories/queue", `{"theme": "space"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestQueueStory_PublishFailure(t *testing.T) {
	f := newFixture(t, true, true)
	f.tasks.On("PublishTask", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	w := f.do(t, http.MethodPost, "/api/stories/queue", `{"theme": "space"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
