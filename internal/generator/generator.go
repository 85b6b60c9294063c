package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"story-server/internal/llm"
	"story-server/internal/materializer"
	"story-server/internal/metrics"
	"story-server/internal/models"
	"story-server/internal/prompts"
	"story-server/internal/schema"
	"story-server/internal/store"
)

// Generator produces a persisted story from a theme.
type Generator struct {
	model        llm.Model
	parser       *schema.Parser
	materializer *materializer.Materializer
	instructions string
	metrics      *metrics.Generation
	logger       *zap.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithInstructions replaces the built-in story instructions.
func WithInstructions(instructions string) Option {
	return func(g *Generator) { g.instructions = instructions }
}

// WithMetrics records each generation.
func WithMetrics(m *metrics.Generation) Option {
	return func(g *Generator) { g.metrics = m }
}

// New creates a Generator. model may be nil when no provider is configured;
// GenerateStory then fails with models.ErrConfiguration.
func New(model llm.Model, limits schema.Limits, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		model:        model,
		parser:       schema.NewParser(limits),
		materializer: materializer.New(limits, logger),
		instructions: prompts.StoryInstructions(),
		logger:       logger.Named("StoryGenerator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateStory prompts the model for a story about theme, validates the
// reply and persists it through sess. The session is committed on success
// and rolled back on any failure, so a failed call leaves no records.
func (g *Generator) GenerateStory(ctx context.Context, sess store.Session, sessionID, theme string) (story *models.Story, err error) {
	if strings.TrimSpace(theme) == "" {
		theme = prompts.DefaultTheme
	}
	log := g.logger.With(zap.String("sessionID", sessionID), zap.String("theme", theme))
	start := time.Now()

	defer func() {
		nodes := 0
		if story != nil {
			nodes = len(story.Nodes)
		}
		g.metrics.Observe(statusOf(err), time.Since(start), nodes)
	}()

	if sess == nil {
		return nil, fmt.Errorf("%w: no store session", models.ErrConfiguration)
	}

	defer func() {
		if err == nil {
			return
		}
		if rbErr := sess.Rollback(ctx); rbErr != nil {
			log.Error("Failed to rollback story session", zap.Error(rbErr))
		}
	}()

	if g.model == nil {
		log.Error("No AI model configured")
		return nil, fmt.Errorf("%w: no AI model configured", models.ErrConfiguration)
	}

	prompt := prompts.Build(g.instructions, g.parser.FormatInstructions(), theme)

	log.Info("Requesting story from model", zap.Int("promptBytes", len(prompt)))
	reply, err := g.model.Invoke(ctx, prompt)
	if err != nil {
		log.Error("Model invocation failed", zap.Error(err))
		return nil, err
	}

	text, err := llm.ResponseText(reply)
	if err != nil {
		return nil, err
	}

	tree, err := g.parser.Parse(text)
	if err != nil {
		log.Warn("Model reply failed validation", zap.Error(err), zap.Int("replyBytes", len(text)))
		return nil, err
	}

	story, err = g.materializer.Materialize(ctx, sess, tree, sessionID)
	if err != nil {
		log.Error("Failed to persist story tree", zap.Error(err))
		return nil, err
	}

	if err = sess.Commit(ctx); err != nil {
		log.Error("Failed to commit story", zap.Int64("storyID", story.ID), zap.Error(err))
		story = nil
		return nil, fmt.Errorf("%w: commit story: %w", models.ErrStore, err)
	}

	log.Info("Story generated",
		zap.Int64("storyID", story.ID),
		zap.String("title", story.Title),
		zap.Int("nodes", len(story.Nodes)),
		zap.Duration("duration", time.Since(start)),
	)
	return story, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, models.ErrConfiguration):
		return metrics.StatusConfigError
	case errors.Is(err, models.ErrSchemaValidation), errors.Is(err, models.ErrTreeLimit):
		return metrics.StatusSchemaError
	case errors.Is(err, models.ErrStore):
		return metrics.StatusStoreError
	case errors.Is(err, llm.ErrModelFailed):
		return metrics.StatusModelError
	default:
		return metrics.StatusInternalError
	}
}
