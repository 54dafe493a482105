package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/ailink/content"
	"github.com/plainly/plainly/internal/ailink/driver"
	"github.com/plainly/plainly/internal/ailink/prompt"
	"github.com/plainly/plainly/internal/core"
	"github.com/plainly/plainly/internal/metrics"
	"github.com/plainly/plainly/internal/observability"
)

// Model defaults.
const (
	DefaultStandardModel = "gpt-3.5-turbo"
	DefaultPremiumModel  = "gpt-4-0613"
	DefaultTemperature   = 0.7
	DefaultTimeout       = 30 * time.Second
)

// Error messages returned to callers.
const (
	msgMissingCredential = "Missing OpenAI API key"
	msgMissingFields     = "Missing input, level, targetLanguage, or model"
	msgRateLimitedFormat = "%s usage limit reached for this hour."
	msgNoResponse        = "No response from OpenAI."
	msgUpstreamFailed    = "Something went wrong with OpenAI."
)

// DriverFactory builds a driver for one request using the resolved API key.
type DriverFactory func(apiKey string) driver.Driver

// Models holds the two supported tier ids.
type Models struct {
	Standard string
	Premium  string
}

// Resolve maps a requested model onto a tier. Unknown names fall back to the
// standard tier.
func (m Models) Resolve(requested string) (string, core.Tier) {
	requested = strings.TrimSpace(requested)
	if requested != "" && requested == m.Premium {
		return m.Premium, core.TierPremium
	}
	return m.Standard, core.TierStandard
}

// Simplifier validates a request, applies the premium tier policy and performs
// a single upstream round trip.
type Simplifier struct {
	Drivers     DriverFactory
	Limiter     *RateLimiter
	Prompt      *prompt.Prompt
	Models      Models
	APIKey      func() (string, bool)
	Timeout     time.Duration
	Temperature float64
	Now         func() time.Time
}

// Simplify runs one request for clientID.
func (s *Simplifier) Simplify(ctx context.Context, clientID string, req core.SimplifyRequest) (*core.SimplifyResult, error) {
	if s == nil || s.Drivers == nil {
		return nil, &Error{Kind: KindUpstreamFailure, Message: msgUpstreamFailed, Err: fmt.Errorf("simplifier not configured")}
	}

	apiKey, ok := s.apiKey()
	if !ok {
		metrics.RecordSimplify("", KindMissingCredential.String())
		return nil, &Error{Kind: KindMissingCredential, Message: msgMissingCredential}
	}

	req = normalizeRequest(req)
	if missing := missingFields(req); len(missing) > 0 {
		metrics.RecordSimplify("", KindInvalidRequest.String())
		return nil, &Error{Kind: KindInvalidRequest, Message: msgMissingFields, Fields: missing}
	}

	models := s.models()
	if req.ModelChoice == models.Premium {
		if s.Limiter == nil {
			logError("premium model requested without a rate limiter", zap.String("model", models.Premium))
			metrics.RecordSimplify(models.Premium, KindUpstreamFailure.String())
			return nil, &Error{Kind: KindUpstreamFailure, Message: msgUpstreamFailed, Err: fmt.Errorf("premium rate limiter not configured")}
		}
		decision := s.Limiter.CheckAndRecord(clientID, s.now())
		if !decision.Allowed {
			logWarn("premium rate limit reached",
				zap.String("client_id", clientID),
				zap.Int("count", decision.Count),
				zap.Duration("retry_after", decision.RetryAfter))
			metrics.RecordSimplify(models.Premium, KindRateLimited.String())
			return nil, &Error{Kind: KindRateLimited, Message: fmt.Sprintf(msgRateLimitedFormat, models.Premium), RetryAfter: decision.RetryAfter}
		}
	}

	model, tier := models.Resolve(req.ModelChoice)
	level, _ := core.ParseDetailLevel(req.DetailLevel)

	system, err := s.instruction(level, req.TargetLanguage)
	if err != nil {
		metrics.RecordSimplify(model, KindUpstreamFailure.String())
		return nil, &Error{Kind: KindUpstreamFailure, Message: msgUpstreamFailed, Err: err}
	}

	temperature := s.temperature()
	request := &driver.Request{
		Model: model,
		Messages: []content.Message{
			driver.TextMessage(content.RoleSystem, system),
			driver.TextMessage(content.RoleUser, req.Text),
		},
		Temperature: &temperature,
	}

	// The upstream call outlives a disconnected client.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout())
	defer cancel()

	start := time.Now()
	resp, err := s.Drivers(apiKey).Complete(callCtx, request)
	duration := time.Since(start)
	metrics.RecordUpstreamDuration(model, duration)
	if err != nil {
		logError("upstream request failed",
			zap.String("model", model),
			zap.String("reason", driver.Classify(err)),
			zap.Duration("duration", duration),
			zap.Error(err))
		metrics.RecordSimplify(model, KindUpstreamFailure.String())
		return nil, &Error{Kind: KindUpstreamFailure, Message: msgUpstreamFailed, Err: err}
	}

	output := strings.TrimSpace(resp.Text())
	if output == "" {
		logError("upstream returned no content",
			zap.String("model", model),
			zap.String("finish_reason", resp.FinishReason),
			zap.Duration("duration", duration))
		metrics.RecordSimplify(model, KindUpstreamFailure.String())
		return nil, &Error{Kind: KindUpstreamFailure, Message: msgNoResponse}
	}

	metrics.RecordSimplify(model, "success")

	result := &core.SimplifyResult{
		Output:         output,
		ModelUsed:      model,
		Tier:           tier,
		Level:          level.String(),
		TargetLanguage: req.TargetLanguage,
		FinishReason:   resp.FinishReason,
		Duration:       duration,
	}
	if resp.Usage != nil {
		result.Usage = &core.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return result, nil
}

// Instruction renders the system prompt for a level and target language.
func (s *Simplifier) Instruction(level core.DetailLevel, targetLanguage string) (string, error) {
	return s.instruction(level, strings.TrimSpace(targetLanguage))
}

func (s *Simplifier) instruction(level core.DetailLevel, targetLanguage string) (string, error) {
	p := s.Prompt
	if p == nil {
		loaded, err := prompt.LoadDefault(prompt.SimplifySlug)
		if err != nil {
			return "", err
		}
		p = loaded
	}
	return prompt.Render(p.Config.SystemTemplate, map[string]string{
		"target_language":   targetLanguage,
		"level_instruction": level.Instruction(),
		"level":             level.String(),
	}), nil
}

func (s *Simplifier) apiKey() (string, bool) {
	if s.APIKey == nil {
		return "", false
	}
	key, ok := s.APIKey()
	key = strings.TrimSpace(key)
	return key, ok && key != ""
}

func (s *Simplifier) models() Models {
	m := s.Models
	if strings.TrimSpace(m.Standard) == "" {
		m.Standard = DefaultStandardModel
	}
	if strings.TrimSpace(m.Premium) == "" {
		m.Premium = DefaultPremiumModel
	}
	return m
}

func (s *Simplifier) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *Simplifier) temperature() float64 {
	if s.Temperature > 0 {
		return s.Temperature
	}
	if t, ok := s.Prompt.Temperature(); ok {
		return t
	}
	return DefaultTemperature
}

func (s *Simplifier) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func normalizeRequest(req core.SimplifyRequest) core.SimplifyRequest {
	return core.SimplifyRequest{
		Text:           strings.TrimSpace(req.Text),
		DetailLevel:    strings.TrimSpace(req.DetailLevel),
		TargetLanguage: strings.TrimSpace(req.TargetLanguage),
		ModelChoice:    strings.TrimSpace(req.ModelChoice),
	}
}

func missingFields(req core.SimplifyRequest) []string {
	var missing []string
	if req.Text == "" {
		missing = append(missing, "input")
	}
	if req.DetailLevel == "" {
		missing = append(missing, "level")
	}
	if req.TargetLanguage == "" {
		missing = append(missing, "targetLanguage")
	}
	if req.ModelChoice == "" {
		missing = append(missing, "model")
	}
	return missing
}

func logWarn(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn(msg, fields...)
	}
}

func logError(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Error(msg, fields...)
	}
}
