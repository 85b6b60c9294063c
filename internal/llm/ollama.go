package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaClient talks to a local Ollama server through its native chat API.
type OllamaClient struct {
	client  *api.Client
	opts    Options
	metrics *Metrics
	logger  *zap.Logger
}

// NewOllamaClient creates a client for opts.BaseURL. A trailing /v1 is
// stripped since the native API lives at the server root.
func NewOllamaClient(opts Options, metrics *Metrics, logger *zap.Logger) (*OllamaClient, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(opts.BaseURL, "/"), "/v1")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL '%s': %w", base, err)
	}

	return &OllamaClient{
		client:  api.NewClient(parsed, &http.Client{Timeout: opts.Timeout}),
		opts:    opts,
		metrics: metrics,
		logger:  logger.Named("OllamaClient"),
	}, nil
}

func (c *OllamaClient) Invoke(ctx context.Context, prompt string) (any, error) {
	if strings.TrimSpace(prompt) == "" {
		c.metrics.failure(c.opts.Model, "error_empty_prompt")
		return nil, fmt.Errorf("%w: prompt is empty", ErrModelFailed)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.opts.Model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": c.opts.Temperature,
		},
	}
	if c.opts.JSONMode {
		req.Format = []byte(`"json"`)
	}

	log := c.logger.With(zap.String("model", c.opts.Model))
	log.Debug("Sending request to Ollama", zap.Int("promptBytes", len(prompt)))

	requestCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	var resp api.ChatResponse
	var content strings.Builder
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		resp = r
		return nil
	})
	took := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("Ollama request timed out", zap.Duration("timeout", c.opts.Timeout), zap.Error(err))
		} else {
			log.Error("Ollama request failed", zap.Duration("duration", took), zap.Error(err))
		}
		c.metrics.failure(c.opts.Model, "error")
		return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
	}
	if content.Len() == 0 {
		log.Error("Ollama returned an empty response", zap.Duration("duration", took))
		c.metrics.failure(c.opts.Model, "error_empty_response")
		return nil, fmt.Errorf("%w: empty response", ErrModelFailed)
	}

	usage := Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.opts.Model, prompt, content.String())
	}
	c.metrics.success(c.opts.Model, took, usage)

	log.Info("Ollama response received",
		zap.Duration("duration", took),
		zap.Int("responseBytes", content.Len()),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
	)
	return &Reply{Content: content.String(), Model: c.opts.Model, Usage: usage}, nil
}
