package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"story-server/internal/messaging"
	"story-server/internal/models"
	"story-server/internal/store"
)

// StoryGenerator is implemented by *generator.Generator.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, sess store.Session, sessionID, theme string) (*models.Story, error)
}

// TaskHandler runs one generation task and reports the outcome.
type TaskHandler struct {
	sessions  store.Factory
	generator StoryGenerator
	notifier  messaging.Notifier
	metrics   *Metrics
	logger    *zap.Logger
}

func NewTaskHandler(sessions store.Factory, gen StoryGenerator, notifier messaging.Notifier, metrics *Metrics, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		sessions:  sessions,
		generator: gen,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger.Named("TaskHandler"),
	}
}

// Handle generates the story of task. A failed generation is reported with
// an error notification and is not an error of Handle; only failures to
// open a session or to publish the notification are returned.
func (h *TaskHandler) Handle(ctx context.Context, task messaging.GenerationTask) error {
	log := h.logger.With(zap.String("taskID", task.TaskID), zap.String("sessionID", task.SessionID))
	log.Info("Processing generation task", zap.String("theme", task.Theme))

	sess, err := h.sessions.Begin(ctx)
	if err != nil {
		h.metrics.taskFailed("session")
		return fmt.Errorf("task %s: %w", task.TaskID, err)
	}

	notification := messaging.StoryNotification{
		TaskID:    task.TaskID,
		SessionID: task.SessionID,
	}

	story, genErr := h.generator.GenerateStory(ctx, sess, task.SessionID, task.Theme)
	if genErr != nil {
		log.Warn("Story generation failed", zap.Error(genErr))
		h.metrics.taskFailed(failureReason(genErr))
		notification.Status = messaging.NotificationStatusError
		notification.ErrorDetails = genErr.Error()
	} else {
		notification.Status = messaging.NotificationStatusSuccess
		notification.StoryID = story.ID
		notification.Title = story.Title
	}

	if err := h.notifier.Notify(ctx, notification); err != nil {
		h.metrics.taskFailed("notify")
		return fmt.Errorf("task %s: %w", task.TaskID, err)
	}
	if genErr == nil {
		h.metrics.taskSucceeded()
		log.Info("Generation task completed", zap.Int64("storyID", story.ID))
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		return "configuration"
	case errors.Is(err, models.ErrSchemaValidation), errors.Is(err, models.ErrTreeLimit):
		return "schema"
	case errors.Is(err, models.ErrStore):
		return "store"
	default:
		return "model"
	}
}
