package core

import "time"

// Tier identifies the model tier a request is billed against.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// SimplifyRequest is a single rewrite request. Every field is required.
type SimplifyRequest struct {
	Text           string `json:"input"`
	DetailLevel    string `json:"level"`
	TargetLanguage string `json:"targetLanguage"`
	ModelChoice    string `json:"model"`
}

// TokenUsage mirrors provider-reported token counts.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SimplifyResult is the outcome of a successful upstream round trip.
type SimplifyResult struct {
	Output         string        `json:"output"`
	ModelUsed      string        `json:"model"`
	Tier           Tier          `json:"tier"`
	Level          string        `json:"level"`
	TargetLanguage string        `json:"target_language"`
	FinishReason   string        `json:"finish_reason,omitempty"`
	Usage          *TokenUsage   `json:"usage,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}
