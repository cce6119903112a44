// Package models provides adapters for the supported LLM providers.
package models

import "context"

// Chat roles on the provider wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reasons normalized across providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// Message is one chat turn sent to or received from a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is the provider-neutral request shape.
type CompletionRequest struct {
	Model            string
	Messages         []Message
	Temperature      float64
	TopP             float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
}

// CompletionResponse is the provider-neutral response shape.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Provider is an upstream LLM. Adapters map provider failures onto the
// apperr taxonomy.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
