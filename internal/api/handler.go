package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/messaging"
	"story-server/internal/models"
	"story-server/internal/store"
)

// StoryGenerator is implemented by *generator.Generator.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, sess store.Session, sessionID, theme string) (*models.Story, error)
}

// StoryReader is implemented by *database.StoryRepository.
type StoryReader interface {
	GetStory(ctx context.Context, id int64) (*models.Story, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.Story, error)
	DeleteStory(ctx context.Context, id int64) error
}

type Handler struct {
	generator StoryGenerator
	sessions  store.Factory
	stories   StoryReader
	tasks     messaging.TaskPublisher
	logger    *zap.Logger
}

// NewHandler wires the story endpoints. tasks may be nil, in which case
// queued generation answers 503.
func NewHandler(gen StoryGenerator, sessions store.Factory, stories StoryReader, tasks messaging.TaskPublisher, logger *zap.Logger) *Handler {
	return &Handler{
		generator: gen,
		sessions:  sessions,
		stories:   stories,
		tasks:     tasks,
		logger:    logger.Named("StoryHandler"),
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.health)

	stories := router.Group("/api/stories", SessionMiddleware())
	{
		stories.POST("/create", h.createStory)
		stories.POST("/queue", h.queueStory)
		stories.GET("", h.listStories)
		stories.GET("/:id/complete", h.getCompleteStory)
		stories.DELETE("/:id", h.deleteStory)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bindCreateRequest(c *gin.Context) (CreateStoryRequest, error) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	req.Theme = strings.TrimSpace(req.Theme)
	if req.Theme == "" {
		return req, fmt.Errorf("%w: theme is empty", models.ErrInvalidInput)
	}
	return req, nil
}

func (h *Handler) createStory(c *gin.Context) {
	req, err := bindCreateRequest(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ctx := c.Request.Context()
	sessionID := sessionFrom(c)

	sess, err := h.sessions.Begin(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	story, err := h.generator.GenerateStory(ctx, sess, sessionID, req.Theme)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.logger.Info("Story created", zap.Int64("storyID", story.ID), zap.String("sessionID", sessionID), zap.Int("nodes", len(story.Nodes)))

	resp, err := toCompleteStory(story)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) queueStory(c *gin.Context) {
	req, err := bindCreateRequest(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if h.tasks == nil {
		h.handleError(c, fmt.Errorf("%w: task queue is not configured", models.ErrConfiguration))
		return
	}
	task := messaging.GenerationTask{
		TaskID:    uuid.NewString(),
		SessionID: sessionFrom(c),
		Theme:     req.Theme,
	}
	if err := h.tasks.PublishTask(c.Request.Context(), task); err != nil {
		h.handleError(c, err)
		return
	}
	h.logger.Info("Generation task queued", zap.String("taskID", task.TaskID), zap.String("sessionID", task.SessionID))
	c.JSON(http.StatusAccepted, TaskResponse{TaskID: task.TaskID, Status: "pending"})
}

func (h *Handler) listStories(c *gin.Context) {
	stories, err := h.stories.ListBySession(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummaries(stories))
}

func (h *Handler) getCompleteStory(c *gin.Context) {
	id, err := storyIDParam(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	story, err := h.stories.GetStory(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp, err := toCompleteStory(story)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// deleteStory removes a story owned by the caller's session. Stories of other
// sessions are reported as missing.
func (h *Handler) deleteStory(c *gin.Context) {
	id, err := storyIDParam(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ctx := c.Request.Context()
	story, err := h.stories.GetStory(ctx, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if story.SessionID != sessionFrom(c) {
		h.handleError(c, fmt.Errorf("story %d: %w", id, models.ErrNotFound))
		return
	}
	if err := h.stories.DeleteStory(ctx, id); err != nil {
		h.handleError(c, err)
		return
	}
	h.logger.Info("Story deleted", zap.Int64("storyID", id))
	c.Status(http.StatusNoContent)
}

func storyIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid story id %q", models.ErrInvalidInput, c.Param("id"))
	}
	return id, nil
}
