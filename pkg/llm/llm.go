package llm

import (
	"context"
	"time"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultMaxPromptChars = 100000
	DefaultMaxConcurrent  = 4
)

type Client interface {
	ListModels(ctx context.Context, apiKey string) ([]string, error)
	GenerateCompletion(ctx context.Context, request GenerateRequest) Result
}

type GenerateRequest struct {
	Prompt      string  `json:"prompt" yaml:"prompt"`
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"maxTokens" yaml:"maxTokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	APIKey      string  `json:"-" yaml:"-"`
}

// Timeouts are applied to every attempt separately, never across retries.
// Connect bounds the dial and TLS handshake and Read bounds the wait for
// response headers. Write is not enforced on its own; it only widens the
// per-attempt deadline returned by Attempt.
type Timeouts struct {
	Connect time.Duration `json:"connect" yaml:"connect"`
	Write   time.Duration `json:"write" yaml:"write"`
	Read    time.Duration `json:"read" yaml:"read"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 30 * time.Second,
		Write:   30 * time.Second,
		Read:    60 * time.Second,
	}
}

// Attempt is the upper bound of a single request/response exchange.
func (t Timeouts) Attempt() time.Duration {
	return t.Connect + t.Write + t.Read
}
