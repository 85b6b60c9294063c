package store

import (
	"fmt"

	"story-server/internal/models"
)

// Tree is a story navigable by node id.
type Tree struct {
	Root  *models.StoryNode
	Nodes map[int64]*models.StoryNode
}

// Child returns the node an option leads to.
func (t *Tree) Child(opt models.NodeOption) (*models.StoryNode, bool) {
	n, ok := t.Nodes[opt.NodeID]
	return n, ok
}

// BuildTree indexes flat node rows and checks that there is exactly one root
// and that every option points at a node of the same story.
func BuildTree(nodes []*models.StoryNode) (*Tree, error) {
	tree := &Tree{Nodes: make(map[int64]*models.StoryNode, len(nodes))}
	for _, n := range nodes {
		tree.Nodes[n.ID] = n
		if n.IsRoot {
			if tree.Root != nil {
				return nil, fmt.Errorf("story has more than one root node (%d and %d)", tree.Root.ID, n.ID)
			}
			tree.Root = n
		}
	}
	if tree.Root == nil {
		return nil, fmt.Errorf("root node not found")
	}
	for _, n := range nodes {
		for _, opt := range n.Options {
			if _, ok := tree.Nodes[opt.NodeID]; !ok {
				return nil, fmt.Errorf("node %d option %q points at unknown node %d", n.ID, opt.Text, opt.NodeID)
			}
		}
	}
	return tree, nil
}
