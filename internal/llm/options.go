package llm

import "time"

// Options configures a provider client.
type Options struct {
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Temperature float32
	// JSONMode asks OpenAI-compatible endpoints for a JSON object response.
	JSONMode bool
}
