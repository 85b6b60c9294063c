package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openaigo.Client
	opts    Options
	metrics *Metrics
	logger  *zap.Logger
}

// NewOpenAIClient creates a client. The timeout is applied to the HTTP client.
func NewOpenAIClient(opts Options, metrics *Metrics, logger *zap.Logger) *OpenAIClient {
	cfg := openaigo.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAIClient{
		client:  openaigo.NewClientWithConfig(cfg),
		opts:    opts,
		metrics: metrics,
		logger:  logger.Named("OpenAIClient"),
	}
}

// Invoke sends prompt as a single user message and returns a *Reply.
func (c *OpenAIClient) Invoke(ctx context.Context, prompt string) (any, error) {
	if strings.TrimSpace(prompt) == "" {
		c.metrics.failure(c.opts.Model, "error_empty_prompt")
		return nil, fmt.Errorf("%w: prompt is empty", ErrModelFailed)
	}

	req := openaigo.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.opts.Temperature,
	}
	if c.opts.JSONMode {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	log := c.logger.With(zap.String("model", c.opts.Model))
	log.Debug("Sending request to AI", zap.Int("promptBytes", len(prompt)), zap.Bool("jsonMode", c.opts.JSONMode))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	took := time.Since(start)
	if err != nil {
		log.Error("AI API request failed", zap.Duration("duration", took), zap.Error(err))
		c.metrics.failure(c.opts.Model, "error")
		return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Error("AI API returned an empty response", zap.Duration("duration", took))
		c.metrics.failure(c.opts.Model, "error_empty_response")
		return nil, fmt.Errorf("%w: empty response", ErrModelFailed)
	}

	content := resp.Choices[0].Message.Content
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.opts.Model, prompt, content)
	}
	c.metrics.success(c.opts.Model, took, usage)

	log.Info("AI response received",
		zap.Duration("duration", took),
		zap.Int("responseBytes", len(content)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
		zap.Bool("estimated", usage.Estimated),
	)
	return &Reply{Content: content, Model: c.opts.Model, Usage: usage}, nil
}
