package openai

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/plainly/plainly/internal/ailink/content"
	"github.com/plainly/plainly/internal/ailink/driver"
)

// Paths into a chat completion body.
const (
	pathContent      = "choices.0.message.content"
	pathFinishReason = "choices.0.finish_reason"
	pathUsage        = "usage"
	pathErrorMessage = "error.message"
)

func parseChatResponse(body []byte) (*driver.Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode response: invalid json")
	}
	root := gjson.ParseBytes(body)
	if len(root.Get("choices").Array()) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	response := &driver.Response{
		Content: []content.ContentBlock{{
			Type: content.ContentTypeText,
			Text: root.Get(pathContent).String(),
		}},
		FinishReason: root.Get(pathFinishReason).String(),
	}

	if u := root.Get(pathUsage); u.Exists() && u.IsObject() {
		response.Usage = &driver.Usage{
			PromptTokens:     int(u.Get("prompt_tokens").Int()),
			CompletionTokens: int(u.Get("completion_tokens").Int()),
			TotalTokens:      int(u.Get("total_tokens").Int()),
		}
	}

	return response, nil
}

// errorMessage prefers the provider's structured error message over the raw body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, pathErrorMessage).String(); strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}
	return strings.TrimSpace(string(body))
}
