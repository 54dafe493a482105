package driver

import (
	"context"

	"github.com/plainly/plainly/internal/ailink/content"
)

// Driver defines the interface for chat-completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	// Implementations make exactly one round trip and never retry.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "openai").
	Name() string
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []content.Message
	Temperature *float64
	MaxTokens   *int
	Metadata    map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// Text returns the first text block, or "" when there is none.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	for _, block := range r.Content {
		if block.Type == content.ContentTypeText {
			return block.Text
		}
	}
	return ""
}

// TextMessage builds a single-block text message.
func TextMessage(role, text string) content.Message {
	return content.Message{
		Role:    role,
		Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: text}},
	}
}
