package materializer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"story-server/internal/models"
	"story-server/internal/schema"
	"story-server/internal/store"
)

// Materializer persists a validated StoryTree as Story and StoryNode records.
// It never commits: the caller owns the transaction boundary.
type Materializer struct {
	limits schema.Limits
	logger *zap.Logger
}

// New creates a Materializer. Zero limits fall back to schema.DefaultLimits.
func New(limits schema.Limits, logger *zap.Logger) *Materializer {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = schema.DefaultLimits.MaxDepth
	}
	if limits.MaxNodes <= 0 {
		limits.MaxNodes = schema.DefaultLimits.MaxNodes
	}
	return &Materializer{
		limits: limits,
		logger: logger.Named("Materializer"),
	}
}

// Materialize writes the story row, flushes it to obtain its id, then writes
// the node tree starting from the root. The returned story carries all
// persisted nodes in creation order.
func (m *Materializer) Materialize(ctx context.Context, sess store.Session, tree *schema.StoryTree, sessionID string) (*models.Story, error) {
	if tree == nil || tree.RootNode == nil {
		return nil, fmt.Errorf("%w: story tree has no root node", models.ErrSchemaValidation)
	}

	story := &models.Story{
		Title:     tree.Title,
		SessionID: sessionID,
	}
	sess.Add(story)
	if err := sess.Flush(ctx); err != nil {
		m.logger.Error("Failed to flush story", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: flush story: %w", models.ErrStore, err)
	}

	nodes, err := m.materialize(ctx, sess, story.ID, tree.RootNode, true)
	if err != nil {
		return nil, err
	}
	story.Nodes = nodes

	m.logger.Info("Story tree materialized",
		zap.Int64("storyID", story.ID),
		zap.String("sessionID", sessionID),
		zap.Int("nodes", len(nodes)),
	)
	return story, nil
}

// MaterializeNode persists node and its whole subtree for storyID and returns
// the persisted subtree root.
func (m *Materializer) MaterializeNode(ctx context.Context, sess store.Session, storyID int64, node *schema.StoryTreeNode, isRoot bool) (*models.StoryNode, error) {
	nodes, err := m.materialize(ctx, sess, storyID, node, isRoot)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// frame is one pending node of the depth-first walk.
type frame struct {
	src     *schema.StoryTreeNode
	rec     *models.StoryNode
	depth   int
	descend bool // false for endings and childless nodes
	next    int  // index of the option being materialized
	refs    []models.NodeOption
}

// materialize walks the subtree pre-order with an explicit stack. Each node
// is flushed with an empty option list first so children can reference the
// story and the parent can reference the child id; once all children exist
// the option list is rewritten and flushed again.
func (m *Materializer) materialize(ctx context.Context, sess store.Session, storyID int64, node *schema.StoryTreeNode, isRoot bool) ([]*models.StoryNode, error) {
	var created []*models.StoryNode

	create := func(src *schema.StoryTreeNode, root bool, depth int) (*frame, error) {
		if src == nil {
			return nil, fmt.Errorf("%w: option without next node", models.ErrSchemaValidation)
		}
		if depth > m.limits.MaxDepth {
			return nil, fmt.Errorf("%w: deeper than %d levels", models.ErrTreeLimit, m.limits.MaxDepth)
		}
		if len(created) >= m.limits.MaxNodes {
			return nil, fmt.Errorf("%w: more than %d nodes", models.ErrTreeLimit, m.limits.MaxNodes)
		}

		rec := &models.StoryNode{
			StoryID:         storyID,
			Content:         src.Content,
			IsRoot:          ToBool(root),
			IsEnding:        ToBool(src.IsEnding),
			IsWinningEnding: ToBool(src.IsWinningEnding),
			Options:         []models.NodeOption{},
		}
		sess.Add(rec)
		if err := sess.Flush(ctx); err != nil {
			return nil, fmt.Errorf("%w: flush node at depth %d: %w", models.ErrStore, depth, err)
		}
		created = append(created, rec)

		m.logger.Debug("Node persisted",
			zap.Int64("storyID", storyID),
			zap.Int64("nodeID", rec.ID),
			zap.Int("depth", depth),
			zap.Bool("isEnding", rec.IsEnding),
		)

		return &frame{
			src:     src,
			rec:     rec,
			depth:   depth,
			descend: !rec.IsEnding && len(src.Options) > 0,
		}, nil
	}

	first, err := create(node, isRoot, 1)
	if err != nil {
		return nil, err
	}

	stack := []*frame{first}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.descend && top.next < len(top.src.Options) {
			child, err := create(top.src.Options[top.next].NextNode, false, top.depth+1)
			if err != nil {
				return nil, err
			}
			stack = append(stack, child)
			continue
		}

		if top.descend {
			top.rec.Options = top.refs
			sess.Add(top.rec)
			if err := sess.Flush(ctx); err != nil {
				return nil, fmt.Errorf("%w: flush options of node %d: %w", models.ErrStore, top.rec.ID, err)
			}
		}

		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.refs = append(parent.refs, models.NodeOption{
				Text:   parent.src.Options[parent.next].Text,
				NodeID: top.rec.ID,
			})
			parent.next++
		}
	}

	return created, nil
}
