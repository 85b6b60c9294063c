package api

import (
	"strconv"
	"time"

	"story-server/internal/models"
	"story-server/internal/store"
)

// CreateStoryRequest is the body of POST /api/stories/create and /api/stories/queue.
type CreateStoryRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OptionResponse is a player choice.
type OptionResponse struct {
	Text   string `json:"text"`
	NodeID int64  `json:"node_id"`
}

// NodeResponse is one node of a complete story.
type NodeResponse struct {
	ID              int64            `json:"id"`
	Content         string           `json:"content"`
	IsEnding        bool             `json:"is_ending"`
	IsWinningEnding bool             `json:"is_winning_ending"`
	Options         []OptionResponse `json:"options"`
}

// CompleteStoryResponse is a story with its whole node graph.
type CompleteStoryResponse struct {
	ID        int64                   `json:"id"`
	Title     string                  `json:"title"`
	SessionID string                  `json:"session_id"`
	CreatedAt time.Time               `json:"created_at"`
	RootNode  NodeResponse            `json:"root_node"`
	AllNodes  map[string]NodeResponse `json:"all_nodes"`
}

// StorySummary is an entry of GET /api/stories.
type StorySummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskResponse is returned when a generation is queued.
type TaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func toNodeResponse(n *models.StoryNode) NodeResponse {
	opts := make([]OptionResponse, 0, len(n.Options))
	for _, o := range n.Options {
		opts = append(opts, OptionResponse{Text: o.Text, NodeID: o.NodeID})
	}
	return NodeResponse{
		ID:              n.ID,
		Content:         n.Content,
		IsEnding:        n.IsEnding,
		IsWinningEnding: n.IsWinningEnding,
		Options:         opts,
	}
}

// toCompleteStory builds the response from a story with its nodes.
func toCompleteStory(story *models.Story) (*CompleteStoryResponse, error) {
	tree, err := store.BuildTree(story.Nodes)
	if err != nil {
		return nil, err
	}
	all := make(map[string]NodeResponse, len(tree.Nodes))
	for _, n := range story.Nodes {
		all[strconv.FormatInt(n.ID, 10)] = toNodeResponse(n)
	}
	return &CompleteStoryResponse{
		ID:        story.ID,
		Title:     story.Title,
		SessionID: story.SessionID,
		CreatedAt: story.CreatedAt,
		RootNode:  toNodeResponse(tree.Root),
		AllNodes:  all,
	}, nil
}

func toSummaries(stories []*models.Story) []StorySummary {
	out := make([]StorySummary, 0, len(stories))
	for _, s := range stories {
		out = append(out, StorySummary{ID: s.ID, Title: s.Title, SessionID: s.SessionID, CreatedAt: s.CreatedAt})
	}
	return out
}
