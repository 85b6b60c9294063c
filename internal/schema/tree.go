package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StoryTree is the validated, in-memory story returned by the model.
// Text fields must be present but may be empty.
type StoryTree struct {
	Title    string         `json:"title"`
	RootNode *StoryTreeNode `json:"rootNode" validate:"required"`
}

func (t *StoryTree) UnmarshalJSON(data []byte) error {
	type plain StoryTree
	var aux struct {
		plain
		Title *string `json:"title"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Title == nil {
		return missingField("title")
	}
	*t = StoryTree(aux.plain)
	t.Title = *aux.Title
	return nil
}

// StoryTreeNode is one node of the transient tree. NextNode of each option
// holds the full child node, not a reference.
type StoryTreeNode struct {
	Content         string        `json:"content"`
	IsEnding        Flag          `json:"isEnding"`
	IsWinningEnding Flag          `json:"isWinningEnding"`
	Options         []StoryOption `json:"options,omitempty" validate:"omitempty,dive"`
}

func (n *StoryTreeNode) UnmarshalJSON(data []byte) error {
	type plain StoryTreeNode
	var aux struct {
		plain
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Content == nil {
		return missingField("content")
	}
	*n = StoryTreeNode(aux.plain)
	n.Content = *aux.Content
	return nil
}

// StoryOption is a player choice together with the node it leads to.
type StoryOption struct {
	Text     string         `json:"text"`
	NextNode *StoryTreeNode `json:"nextNode" validate:"required"`
}

func (o *StoryOption) UnmarshalJSON(data []byte) error {
	type plain StoryOption
	var aux struct {
		plain
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Text == nil {
		return missingField("text")
	}
	*o = StoryOption(aux.plain)
	o.Text = *aux.Text
	return nil
}

// missingField reports a text field that is absent or null.
func missingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}

// Flag keeps the scalar the model produced for a boolean field.
// Models answer with true, "True", "false", null and sometimes numbers;
// conversion to a strict bool is done by the materializer.
type Flag struct {
	raw any
}

// NewFlag wraps a raw scalar.
func NewFlag(v any) Flag {
	return Flag{raw: v}
}

// Raw returns the value as decoded from JSON (bool, string, float64 or nil).
func (f Flag) Raw() any {
	return f.raw
}

// UnmarshalJSON accepts any JSON scalar. Objects and arrays are rejected.
func (f *Flag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return fmt.Errorf("flag must be a scalar, got %s", string(trimmed[:1]))
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	f.raw = v
	return nil
}

// IsTrue reports whether the raw value is a native true or the string
// "true" in any case. Everything else, "yes" and 1 included, is false.
func (f Flag) IsTrue() bool {
	switch v := f.raw.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// MarshalJSON writes the raw value back.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.raw)
}
