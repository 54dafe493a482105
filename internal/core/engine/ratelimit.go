package engine

import (
	"time"

	"github.com/plainly/plainly/internal/core"
	"github.com/plainly/plainly/internal/metrics"
)

// DefaultPremiumLimit is the number of premium calls a client may make per window.
const DefaultPremiumLimit = 5

// DefaultWindow is the fixed rate limit window.
const DefaultWindow = time.Hour

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed bool
	// Count is the client's usage in the current window after this check.
	Count int
	// RetryAfter is the time until the current window ends; zero when allowed.
	RetryAfter time.Duration
}

// UsageStore is the per-client state the limiter evaluates against.
type UsageStore interface {
	Update(clientID string, fn func(current *core.UsageRecord) *core.UsageRecord)
}

// RateLimiter enforces a fixed-window per-client limit.
//
// Windows start at a client's first call, not at wall-clock boundaries, and are
// not sliding: a client may burst up to 2*Limit calls across a window edge.
type RateLimiter struct {
	Store  UsageStore
	Limit  int
	Window time.Duration
}

// NewRateLimiter returns a limiter with defaults applied for non-positive values.
func NewRateLimiter(store UsageStore, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultPremiumLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{Store: store, Limit: limit, Window: window}
}

// CheckAndRecord evaluates and records one call for clientID at now.
//
// A missing or expired record is replaced by {1, now}. A record at the limit is
// denied without mutation. Anything else is incremented. A limiter without a
// store denies every call.
func (r *RateLimiter) CheckAndRecord(clientID string, now time.Time) Decision {
	if r == nil || r.Store == nil {
		return Decision{Allowed: false}
	}

	limit := r.Limit
	if limit <= 0 {
		limit = DefaultPremiumLimit
	}
	window := r.Window
	if window <= 0 {
		window = DefaultWindow
	}

	var decision Decision
	r.Store.Update(clientID, func(current *core.UsageRecord) *core.UsageRecord {
		if current == nil || current.Expired(now, window) {
			decision = Decision{Allowed: true, Count: 1}
			return &core.UsageRecord{Count: 1, WindowStart: now}
		}
		if current.Count >= limit {
			retry := current.WindowStart.Add(window).Sub(now)
			if retry < 0 {
				retry = 0
			}
			decision = Decision{Allowed: false, Count: current.Count, RetryAfter: retry}
			return nil
		}
		current.Count++
		decision = Decision{Allowed: true, Count: current.Count}
		return current
	})

	metrics.RecordRateLimitDecision(decision.Allowed)
	return decision
}
