package cmd

import (
	"fmt"
	"time"

	"github.com/plainly/plainly/internal/ailink/driver"
	"github.com/plainly/plainly/internal/ailink/driver/openai"
	"github.com/plainly/plainly/internal/ailink/prompt"
	"github.com/plainly/plainly/internal/config"
	"github.com/plainly/plainly/internal/core/engine"
	"github.com/plainly/plainly/internal/core/store"
	"github.com/plainly/plainly/internal/metrics"
)

// simplifyRuntime is the domain graph shared by serve and simplify.
type simplifyRuntime struct {
	Usage      *store.UsageStore
	Limiter    *engine.RateLimiter
	Simplifier *engine.Simplifier
}

// newSimplifyRuntime builds the usage store, premium limiter and simplifier
// from cfg. The usage store reports its size to the tracked-clients gauge.
func newSimplifyRuntime(cfg *config.Config) (*simplifyRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	p, err := prompt.Resolve(cfg.PromptsDir, prompt.SimplifySlug)
	if err != nil {
		return nil, fmt.Errorf("load simplify prompt: %w", err)
	}

	usage := store.NewUsageStore()
	usage.OnInsert = metrics.SetTrackedClients

	limiter := engine.NewRateLimiter(usage, cfg.RateLimit.PremiumLimit, cfg.RateLimit.Window)

	upstream := cfg.Upstream
	simplifier := &engine.Simplifier{
		Drivers:     openAIDrivers(upstream.BaseURL, upstream.Timeout),
		Limiter:     limiter,
		Prompt:      p,
		Models:      engine.Models{Standard: upstream.StandardModel, Premium: upstream.PremiumModel},
		APIKey:      upstream.APIKey,
		Timeout:     upstream.Timeout,
		Temperature: upstream.Temperature,
	}

	return &simplifyRuntime{Usage: usage, Limiter: limiter, Simplifier: simplifier}, nil
}

func openAIDrivers(baseURL string, timeout time.Duration) engine.DriverFactory {
	return func(apiKey string) driver.Driver {
		client := openai.NewClient(baseURL, apiKey)
		client.Timeout = timeout
		return client
	}
}
