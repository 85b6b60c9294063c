package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"story-server/internal/models"
	"story-server/internal/store"
)

const (
	insertStoryQuery = `INSERT INTO stories (title, session_id) VALUES ($1, $2) RETURNING id, created_at`
	updateStoryQuery = `UPDATE stories SET title = $2 WHERE id = $1`
	insertNodeQuery  = `
        INSERT INTO story_nodes (story_id, content, is_root, is_ending, is_winning_ending, options)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`
	updateNodeQuery = `
        UPDATE story_nodes
        SET content = $2, is_root = $3, is_ending = $4, is_winning_ending = $5, options = $6
        WHERE id = $1`
)

// Beginner starts transactions. *pgxpool.Pool implements it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SessionFactory opens a PgSession per unit of work.
type SessionFactory struct {
	db     Beginner
	logger *zap.Logger
}

func NewSessionFactory(db Beginner, logger *zap.Logger) *SessionFactory {
	return &SessionFactory{db: db, logger: logger.Named("PgSession")}
}

// Begin starts a transaction.
func (f *SessionFactory) Begin(ctx context.Context) (store.Session, error) {
	tx, err := f.db.Begin(ctx)
	if err != nil {
		f.logger.Error("Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("%w: begin transaction: %w", models.ErrStore, err)
	}
	return &PgSession{tx: tx, logger: f.logger}, nil
}

// PgSession implements store.Session over a pgx transaction.
type PgSession struct {
	tx      pgx.Tx
	pending []any
	done    bool
	logger  *zap.Logger
}

// NewPgSession wraps an open transaction.
func NewPgSession(tx pgx.Tx, logger *zap.Logger) *PgSession {
	return &PgSession{tx: tx, logger: logger}
}

func (s *PgSession) Add(record any) {
	s.pending = append(s.pending, record)
}

// Flush writes staged records in the order they were added.
func (s *PgSession) Flush(ctx context.Context) error {
	if s.done {
		return fmt.Errorf("session is already closed")
	}
	pending := s.pending
	s.pending = nil

	for _, rec := range pending {
		var err error
		switch r := rec.(type) {
		case *models.Story:
			err = s.writeStory(ctx, r)
		case *models.StoryNode:
			err = s.writeNode(ctx, r)
		default:
			err = fmt.Errorf("unsupported record type %T", rec)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PgSession) writeStory(ctx context.Context, story *models.Story) error {
	if story.ID == 0 {
		if err := s.tx.QueryRow(ctx, insertStoryQuery, story.Title, story.SessionID).Scan(&story.ID, &story.CreatedAt); err != nil {
			return fmt.Errorf("insert story: %w", err)
		}
		return nil
	}
	if _, err := s.tx.Exec(ctx, updateStoryQuery, story.ID, story.Title); err != nil {
		return fmt.Errorf("update story %d: %w", story.ID, err)
	}
	return nil
}

func (s *PgSession) writeNode(ctx context.Context, node *models.StoryNode) error {
	options := node.Options
	if options == nil {
		options = []models.NodeOption{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal options of node %d: %w", node.ID, err)
	}

	if node.ID == 0 {
		err = s.tx.QueryRow(ctx, insertNodeQuery,
			node.StoryID, node.Content, node.IsRoot, node.IsEnding, node.IsWinningEnding, optionsJSON,
		).Scan(&node.ID)
		if err != nil {
			return fmt.Errorf("insert node of story %d: %w", node.StoryID, err)
		}
		return nil
	}
	tag, err := s.tx.Exec(ctx, updateNodeQuery,
		node.ID, node.Content, node.IsRoot, node.IsEnding, node.IsWinningEnding, optionsJSON)
	if err != nil {
		return fmt.Errorf("update node %d: %w", node.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update node %d: %w", node.ID, models.ErrNotFound)
	}
	return nil
}

func (s *PgSession) Commit(ctx context.Context) error {
	if len(s.pending) > 0 {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}
	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.done = true
	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (s *PgSession) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	s.pending = nil
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Error("Failed to rollback transaction", zap.Error(err))
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

var (
	_ store.Session = (*PgSession)(nil)
	_ store.Factory = (*SessionFactory)(nil)
)
