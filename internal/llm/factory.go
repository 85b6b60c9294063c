package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"story-server/internal/config"
	"story-server/internal/models"
)

// New builds the model client selected by cfg.AIProvider.
// The openai provider requires an API key.
func New(cfg *config.Config, metrics *Metrics, logger *zap.Logger) (Model, error) {
	opts := Options{
		Model:       cfg.AIModel,
		BaseURL:     cfg.AIBaseURL,
		APIKey:      cfg.AIAPIKey,
		Timeout:     cfg.AITimeout,
		Temperature: cfg.AITemperature,
		JSONMode:    cfg.AIJSONMode,
	}

	switch strings.ToLower(cfg.AIProvider) {
	case "openai", "":
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, fmt.Errorf("%w: AI API key is not set (ai_api_key secret or AI_API_KEY)", models.ErrConfiguration)
		}
		logger.Info("Using OpenAI-compatible AI client",
			zap.String("baseURL", opts.BaseURL), zap.String("model", opts.Model), zap.Duration("timeout", opts.Timeout))
		return NewOpenAIClient(opts, metrics, logger), nil
	case "ollama":
		logger.Info("Using Ollama AI client",
			zap.String("baseURL", opts.BaseURL), zap.String("model", opts.Model), zap.Duration("timeout", opts.Timeout))
		c, err := NewOllamaClient(opts, metrics, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown AI provider '%s'", models.ErrConfiguration, cfg.AIProvider)
	}
}
