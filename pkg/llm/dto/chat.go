package dto

const RoleUser = "user"

type ChatMessage struct {
	Role    string `json:"role" yaml:"role"`       // author of the message (user, assistant, system)
	Content string `json:"content" yaml:"content"` // message text
}

// ChatResponseMessage keeps a missing or null content apart from an empty one.
type ChatResponseMessage struct {
	Role    string  `json:"role" yaml:"role"`
	Content *string `json:"content" yaml:"content"`
}

type ChatCompletionRequest struct {
	Model       string        `json:"model" yaml:"model"`             // model identifier (e.g. gpt-4)
	Messages    []ChatMessage `json:"messages" yaml:"messages"`       // conversation, a single user message for documentation
	MaxTokens   int           `json:"max_tokens" yaml:"maxTokens"`    // upper bound of generated tokens
	Temperature float64       `json:"temperature" yaml:"temperature"` // sampling temperature in [0,1]
}

type ChatCompletionChoice struct {
	Index        int                  `json:"index" yaml:"index"`
	Message      *ChatResponseMessage `json:"message" yaml:"message"`
	FinishReason string               `json:"finish_reason,omitempty" yaml:"finishReason,omitempty"`
}

type ChatCompletionResponse struct {
	ID      string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Model   string                 `json:"model,omitempty" yaml:"model,omitempty"`
	Choices []ChatCompletionChoice `json:"choices" yaml:"choices"`
}

func NewChatCompletionRequest(model, prompt string, maxTokens int, temperature float64) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:       model,
		Messages:    []ChatMessage{{Role: RoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}
