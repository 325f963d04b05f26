package domain

import "encoding/json"

// ChatMessage is a single role/content pair sent to the completion API.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the outbound chat completions payload.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

// CompletionChoice is one generated alternative. Content is nil when the
// upstream omitted it or sent null.
type CompletionChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
}

// CompletionResponse is the decoded upstream body. Usage is kept raw so it can
// be handed back to callers untouched.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   json.RawMessage    `json:"usage,omitempty"`
}
