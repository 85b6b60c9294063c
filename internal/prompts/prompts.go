package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTheme is used when the caller gives no theme.
const DefaultTheme = "fantasy"

// StoryPromptFile is the file name looked up in a prompts directory.
const StoryPromptFile = "story.md"

//go:embed story.md
var storyInstructions string

// StoryInstructions returns the built-in story writing instructions.
func StoryInstructions() string {
	return storyInstructions
}

// Load returns the instructions from dir/story.md, or the built-in ones
// when dir is empty.
func Load(dir string) (string, error) {
	if dir == "" {
		return storyInstructions, nil
	}
	path := filepath.Join(dir, StoryPromptFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return string(data), nil
}

// Build assembles the full prompt sent to the model.
func Build(instructions, formatInstructions, theme string) string {
	if strings.TrimSpace(theme) == "" {
		theme = DefaultTheme
	}
	return instructions + "\n\n" + formatInstructions + "\n\nCreate the story with this theme: " + theme
}
