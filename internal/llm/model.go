package llm

import (
	"context"
	"errors"
	"fmt"

	"story-server/internal/models"
)

// ErrModelFailed wraps transport and provider errors of a model call.
var ErrModelFailed = errors.New("model call failed")

// Model is a chat model that answers a single prompt.
//
// Invoke returns either a raw string or []byte, or a value exposing
// GetContent() string such as *Reply. Use ResponseText to read it.
type Model interface {
	Invoke(ctx context.Context, prompt string) (any, error)
}

// Usage is the token accounting of one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// Reply is the message returned by the provider clients.
type Reply struct {
	Content string
	Model   string
	Usage   Usage
}

func (r *Reply) GetContent() string {
	return r.Content
}

// ResponseText extracts the text of a model reply.
func ResponseText(reply any) (string, error) {
	switch r := reply.(type) {
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	case interface{ GetContent() string }:
		return r.GetContent(), nil
	case nil:
		return "", fmt.Errorf("%w: model returned no reply", models.ErrSchemaValidation)
	default:
		return "", fmt.Errorf("%w: unsupported reply type %T", models.ErrSchemaValidation, reply)
	}
}
