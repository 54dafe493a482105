package metrics

import (
	"time"

	"github.com/plainly/plainly/internal/observability"
)

// Application metric names.
const (
	SimplifyTotal           = "plainly_simplify_total"
	UpstreamDuration        = "plainly_upstream_duration_ms"
	RateLimitDecisionsTotal = "plainly_rate_limit_decisions_total"
	RateLimitTrackedClients = "plainly_rate_limit_tracked_clients"
	HealthCheckTotal        = "app_health_check_total"
	HealthCheckDuration     = "app_health_check_duration_ms"
	ServerStartTime         = "app_server_start_time_seconds"
)

// RecordSimplify counts a finished simplify request. status is "success" or an
// error kind such as "rate_limited".
func RecordSimplify(model, status string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SimplifyTotal,
			1,
			map[string]string{
				"model":  model,
				"status": status,
			},
		)
	}
}

// RecordUpstreamDuration records one upstream round trip.
func RecordUpstreamDuration(model string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			UpstreamDuration,
			duration,
			map[string]string{"model": model},
		)
	}
}

// RecordRateLimitDecision counts a premium-tier limiter decision.
func RecordRateLimitDecision(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{"decision": decision},
		)
	}
}

// SetTrackedClients sets the number of clients held by the usage store.
func SetTrackedClients(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			RateLimitTrackedClients,
			float64(count),
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
