package domain

import "time"

// TokenUsage is the token accounting block most OpenAI-compatible APIs return.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord is one ledger entry for a successful completion. It never
// carries message text.
type UsageRecord struct {
	RequestID string
	Model     string
	Usage     TokenUsage
	Latency   time.Duration
	CreatedAt time.Time
}
