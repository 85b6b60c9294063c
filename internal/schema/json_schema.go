package schema

// JSONSchema returns the JSON schema of StoryTree in the shape accepted by
// OpenAI style response_format.json_schema. Nodes are recursive, so the node
// definition is referenced through $defs.
func JSONSchema() map[string]interface{} {
	node := map[string]interface{}{
		"type":        "object",
		"description": "A single story step. Ending nodes have no options.",
		"properties": map[string]interface{}{
			"content":         map[string]interface{}{"type": "string", "description": "Narrative text shown to the player."},
			"isEnding":        map[string]interface{}{"type": "boolean", "description": "True when the story ends at this node."},
			"isWinningEnding": map[string]interface{}{"type": "boolean", "description": "True when this ending is a victory."},
			"options": map[string]interface{}{
				"type":        "array",
				"description": "Choices available to the player. Empty or omitted for endings.",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"text":     map[string]interface{}{"type": "string", "description": "Text of the choice."},
						"nextNode": map[string]interface{}{"$ref": "#/$defs/StoryNode"},
					},
					"required":             []string{"text", "nextNode"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"content", "isEnding", "isWinningEnding"},
		"additionalProperties": false,
	}

	return map[string]interface{}{
		"type":        "object",
		"description": "A branching choose-your-own-adventure story.",
		"properties": map[string]interface{}{
			"title":    map[string]interface{}{"type": "string", "description": "Title of the story."},
			"rootNode": map[string]interface{}{"$ref": "#/$defs/StoryNode"},
		},
		"required":             []string{"title", "rootNode"},
		"additionalProperties": false,
		"$defs": map[string]interface{}{
			"StoryNode": node,
		},
	}
}
