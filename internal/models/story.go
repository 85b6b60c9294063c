package models

import (
	"time"
)

// Story is the persisted root of one generated adventure.
// Deleting a story removes all of its nodes (ON DELETE CASCADE).
type Story struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	SessionID string    `db:"session_id" json:"session_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Nodes is filled by the read side and by the generator after commit.
	Nodes []*StoryNode `db:"-" json:"-"`
}

// StoryNode is one narrative step of a story.
// Options reference children by generated id, never by embedding them.
type StoryNode struct {
	ID              int64        `db:"id" json:"id"`
	StoryID         int64        `db:"story_id" json:"story_id"`
	Content         string       `db:"content" json:"content"`
	IsRoot          bool         `db:"is_root" json:"is_root"`
	IsEnding        bool         `db:"is_ending" json:"is_ending"`
	IsWinningEnding bool         `db:"is_winning_ending" json:"is_winning_ending"`
	Options         []NodeOption `db:"options" json:"options"`
}

// NodeOption is a player choice pointing at the node it leads to.
type NodeOption struct {
	Text   string `json:"text"`
	NodeID int64  `json:"node_id"`
}

// RootNode returns the node flagged as root, or nil.
func (s *Story) RootNode() *StoryNode {
	for _, n := range s.Nodes {
		if n.IsRoot {
			return n
		}
	}
	return nil
}
