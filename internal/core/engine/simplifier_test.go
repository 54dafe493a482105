package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plainly/plainly/internal/ailink/content"
	"github.com/plainly/plainly/internal/ailink/driver"
	"github.com/plainly/plainly/internal/core"
	"github.com/plainly/plainly/internal/core/store"
)

type fakeDriver struct {
	mu       sync.Mutex
	calls    int
	requests []*driver.Request
	apiKeys  []string
	ctxErrs  []error
	deadline []bool

	reply string
	err   error
	delay time.Duration
}

func (f *fakeDriver) factory(apiKey string) driver.Driver {
	f.mu.Lock()
	f.apiKeys = append(f.apiKeys, apiKey)
	f.mu.Unlock()
	return f
}

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	_, hasDeadline := ctx.Deadline()

	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.deadline = append(f.deadline, hasDeadline)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: f.reply}},
		FinishReason: "stop",
		Usage:        &driver.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeDriver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSimplifier(fake *fakeDriver) (*Simplifier, *store.UsageStore) {
	usage := store.NewUsageStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Simplifier{
		Drivers: fake.factory,
		Limiter: NewRateLimiter(usage, DefaultPremiumLimit, DefaultWindow),
		Models:  Models{Standard: DefaultStandardModel, Premium: DefaultPremiumModel},
		APIKey:  func() (string, bool) { return "sk-test", true },
		Timeout: time.Second,
		Now:     func() time.Time { return now },
	}, usage
}

func validRequest(model string) core.SimplifyRequest {
	return core.SimplifyRequest{
		Text:           "  Der Vertrag endet am 31. Dezember.  ",
		DetailLevel:    "Plain English",
		TargetLanguage: "English",
		ModelChoice:    model,
	}
}

func TestSimplifySuccess(t *testing.T) {
	fake := &fakeDriver{reply: "  The contract ends on December 31.  "}
	s, _ := newTestSimplifier(fake)

	result, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	require.NoError(t, err)

	assert.Equal(t, "The contract ends on December 31.", result.Output)
	assert.Equal(t, DefaultStandardModel, result.ModelUsed)
	assert.Equal(t, core.TierStandard, result.Tier)
	assert.Equal(t, "Plain English", result.Level)
	assert.Equal(t, "stop", result.FinishReason)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 15, result.Usage.TotalTokens)

	require.Equal(t, 1, fake.callCount())
	assert.Equal(t, []string{"sk-test"}, fake.apiKeys)
}

func TestSimplifyBuildsPayload(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	require.NoError(t, err)

	req := fake.requests[0]
	assert.Equal(t, DefaultStandardModel, req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.7, *req.Temperature)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, content.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, content.RoleUser, req.Messages[1].Role)

	system := req.Messages[0].Content[0].Text
	assert.Contains(t, system, "Detect the input language")
	assert.Contains(t, system, `translate it into "English"`)
	assert.Contains(t, system, core.LevelPlainEnglish.Instruction())
	assert.Contains(t, system, `Respond only with the result in "English"`)
	assert.NotContains(t, system, "{{")

	assert.Equal(t, "Der Vertrag endet am 31. Dezember.", req.Messages[1].Content[0].Text)
}

func TestSimplifyUnknownLevelUsesGenericInstruction(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)

	req := validRequest(DefaultStandardModel)
	req.DetailLevel = "Pirate speak"
	result, err := s.Simplify(context.Background(), "1.2.3.4", req)
	require.NoError(t, err)

	assert.Equal(t, "Generic", result.Level)
	assert.Contains(t, fake.requests[0].Messages[0].Content[0].Text, core.GenericInstruction)
}

func TestSimplifyAcceptsUILabel(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)

	req := validRequest(DefaultStandardModel)
	req.DetailLevel = "Explain like I’m 5"
	result, err := s.Simplify(context.Background(), "1.2.3.4", req)
	require.NoError(t, err)
	assert.Equal(t, "ELI5", result.Level)
}

func TestSimplifyMissingCredentialComesFirst(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, usage := newTestSimplifier(fake)
	s.APIKey = func() (string, bool) { return "", false }

	_, err := s.Simplify(context.Background(), "1.2.3.4", core.SimplifyRequest{ModelChoice: DefaultPremiumModel})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Equal(t, 0, fake.callCount())
	assert.Equal(t, 0, usage.Len())
}

func TestSimplifyBlankCredentialIsMissing(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)
	s.APIKey = func() (string, bool) { return "   ", true }

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	assert.Equal(t, KindMissingCredential, KindOf(err))
}

func TestSimplifyMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*core.SimplifyRequest)
		missing []string
	}{
		{"input", func(r *core.SimplifyRequest) { r.Text = "" }, []string{"input"}},
		{"whitespace input", func(r *core.SimplifyRequest) { r.Text = " \n\t " }, []string{"input"}},
		{"level", func(r *core.SimplifyRequest) { r.DetailLevel = "" }, []string{"level"}},
		{"language", func(r *core.SimplifyRequest) { r.TargetLanguage = " " }, []string{"targetLanguage"}},
		{"model", func(r *core.SimplifyRequest) { r.ModelChoice = "" }, []string{"model"}},
		{"all", func(r *core.SimplifyRequest) { *r = core.SimplifyRequest{} }, []string{"input", "level", "targetLanguage", "model"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeDriver{reply: "ok"}
			s, usage := newTestSimplifier(fake)

			req := validRequest(DefaultPremiumModel)
			tc.mutate(&req)
			_, err := s.Simplify(context.Background(), "1.2.3.4", req)

			var simplifyErr *Error
			require.True(t, errors.As(err, &simplifyErr))
			assert.Equal(t, KindInvalidRequest, simplifyErr.Kind)
			assert.Equal(t, tc.missing, simplifyErr.Fields)
			assert.Equal(t, 0, fake.callCount())
			assert.Equal(t, 0, usage.Len(), "invalid requests never touch the limiter")
		})
	}
}

func TestSimplifyPremiumLimit(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, usage := newTestSimplifier(fake)

	for i := 0; i < DefaultPremiumLimit; i++ {
		result, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultPremiumModel))
		require.NoError(t, err, "call %d", i+1)
		assert.Equal(t, DefaultPremiumModel, result.ModelUsed)
		assert.Equal(t, core.TierPremium, result.Tier)
	}

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultPremiumModel))
	var simplifyErr *Error
	require.True(t, errors.As(err, &simplifyErr))
	assert.Equal(t, KindRateLimited, simplifyErr.Kind)
	assert.Equal(t, "gpt-4-0613 usage limit reached for this hour.", simplifyErr.Message)
	assert.Equal(t, DefaultWindow, simplifyErr.RetryAfter)
	assert.Equal(t, DefaultPremiumLimit, fake.callCount(), "denied call makes no upstream request")

	record, ok := usage.Get("1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, DefaultPremiumLimit, record.Count)

	// The standard tier stays available to the same client.
	_, err = s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	require.NoError(t, err)
}

func TestSimplifyRateLimitMessageNamesConfiguredModel(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)
	s.Models.Premium = "gpt-4o"
	s.Limiter.Limit = 1

	req := validRequest("gpt-4o")
	_, err := s.Simplify(context.Background(), "1.2.3.4", req)
	require.NoError(t, err)

	_, err = s.Simplify(context.Background(), "1.2.3.4", req)
	var simplifyErr *Error
	require.True(t, errors.As(err, &simplifyErr))
	assert.Equal(t, "gpt-4o usage limit reached for this hour.", simplifyErr.Message)
	assert.NotContains(t, simplifyErr.Message, "GPT-4")
}

func TestSimplifyPremiumWithoutLimiterFailsClosed(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)
	s.Limiter = nil

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultPremiumModel))
	assert.Equal(t, KindUpstreamFailure, KindOf(err))
	assert.Zero(t, fake.callCount())

	// The standard tier needs no limiter.
	_, err = s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	require.NoError(t, err)
}

func TestInstructionIsDeterministic(t *testing.T) {
	s, _ := newTestSimplifier(&fakeDriver{})

	first, err := s.Instruction(core.LevelExecutiveSummary, "{{level}}")
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		got, err := s.Instruction(core.LevelExecutiveSummary, "{{level}}")
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
	assert.Contains(t, first, "{{level}}")
}

func TestSimplifyPremiumLimitIsPerClient(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)

	for i := 0; i < DefaultPremiumLimit; i++ {
		_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultPremiumModel))
		require.NoError(t, err)
	}
	_, err := s.Simplify(context.Background(), "5.6.7.8", validRequest(DefaultPremiumModel))
	require.NoError(t, err)
}

func TestSimplifyUnknownModelFallsBackWithoutLimiter(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, usage := newTestSimplifier(fake)

	result, err := s.Simplify(context.Background(), "1.2.3.4", validRequest("gpt-9-ultra"))
	require.NoError(t, err)

	assert.Equal(t, DefaultStandardModel, result.ModelUsed)
	assert.Equal(t, DefaultStandardModel, fake.requests[0].Model)
	assert.Equal(t, 0, usage.Len())
}

func TestSimplifyStandardModelSkipsLimiter(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, usage := newTestSimplifier(fake)

	for i := 0; i < DefaultPremiumLimit*2; i++ {
		_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
		require.NoError(t, err)
	}
	assert.Equal(t, 0, usage.Len())
}

func TestSimplifyEmptyReply(t *testing.T) {
	fake := &fakeDriver{reply: "   \n "}
	s, _ := newTestSimplifier(fake)

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	var simplifyErr *Error
	require.True(t, errors.As(err, &simplifyErr))
	assert.Equal(t, KindUpstreamFailure, simplifyErr.Kind)
	assert.Equal(t, "No response from OpenAI.", simplifyErr.Message)
}

func TestSimplifyUpstreamError(t *testing.T) {
	upstreamErr := &driver.ProviderError{Provider: "fake", StatusCode: 502, Message: "bad gateway"}
	fake := &fakeDriver{err: upstreamErr}
	s, _ := newTestSimplifier(fake)

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamFailure))

	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 502, perr.StatusCode)
	assert.Equal(t, 1, fake.callCount(), "no retry")
}

func TestSimplifyUpstreamCallIsDetachedFromCaller(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Simplify(ctx, "1.2.3.4", validRequest(DefaultStandardModel))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.NoError(t, fake.ctxErrs[0])
	assert.True(t, fake.deadline[0], "upstream call carries its own timeout")
}

func TestSimplifyTemperatureOverride(t *testing.T) {
	fake := &fakeDriver{reply: "ok"}
	s, _ := newTestSimplifier(fake)
	s.Temperature = 0.2

	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	require.NoError(t, err)
	assert.Equal(t, 0.2, *fake.requests[0].Temperature)
}

func TestSimplifyNilSimplifier(t *testing.T) {
	var s *Simplifier
	_, err := s.Simplify(context.Background(), "1.2.3.4", validRequest(DefaultStandardModel))
	assert.Equal(t, KindUpstreamFailure, KindOf(err))
}

func TestModelsResolve(t *testing.T) {
	m := Models{Standard: "std", Premium: "pro"}

	model, tier := m.Resolve("pro")
	assert.Equal(t, "pro", model)
	assert.Equal(t, core.TierPremium, tier)

	model, tier = m.Resolve("std")
	assert.Equal(t, "std", model)
	assert.Equal(t, core.TierStandard, tier)

	model, tier = m.Resolve("unknown")
	assert.Equal(t, "std", model)
	assert.Equal(t, core.TierStandard, tier)
}
