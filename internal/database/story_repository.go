package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"story-server/internal/models"
)

const (
	getStoryQuery      = `SELECT id, title, session_id, created_at FROM stories WHERE id = $1`
	getStoryNodesQuery = `SELECT id, story_id, content, is_root, is_ending, is_winning_ending, options FROM story_nodes WHERE story_id = $1 ORDER BY id`
	listBySessionQuery = `SELECT id, title, session_id, created_at FROM stories WHERE session_id = $1 ORDER BY created_at DESC, id DESC`
	deleteStoryQuery   = `DELETE FROM stories WHERE id = $1`
)

// StoryRepository reads and deletes persisted stories.
type StoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewStoryRepository(db DBTX, logger *zap.Logger) *StoryRepository {
	return &StoryRepository{db: db, logger: logger.Named("StoryRepo")}
}

// GetStory returns the story with all of its nodes.
func (r *StoryRepository) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	log := r.logger.With(zap.Int64("storyID", id))

	var story models.Story
	if err := pgxscan.Get(ctx, r.db, &story, getStoryQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		log.Error("Failed to get story", zap.Error(err))
		return nil, fmt.Errorf("failed to get story %d: %w", id, err)
	}

	if err := pgxscan.Select(ctx, r.db, &story.Nodes, getStoryNodesQuery, id); err != nil {
		log.Error("Failed to get story nodes", zap.Error(err))
		return nil, fmt.Errorf("failed to get nodes of story %d: %w", id, err)
	}
	return &story, nil
}

// ListBySession returns the stories of a session, newest first, without nodes.
func (r *StoryRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Story, error) {
	stories := make([]*models.Story, 0)
	if err := pgxscan.Select(ctx, r.db, &stories, listBySessionQuery, sessionID); err != nil {
		r.logger.Error("Failed to list stories", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories of session %s: %w", sessionID, err)
	}
	return stories, nil
}

// DeleteStory removes a story and, by cascade, its nodes.
func (r *StoryRepository) DeleteStory(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Int64("storyID", id), zap.Error(err))
		return fmt.Errorf("failed to delete story %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted", zap.Int64("storyID", id))
	return nil
}
