package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plainly/plainly/internal/observability"
)

func withCollector(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestAppMetricsEmit(t *testing.T) {
	collector := withCollector(t)

	RecordSimplify("gpt-3.5-turbo", "success")
	RecordSimplify("gpt-4-0613", "rate_limited")
	RecordUpstreamDuration("gpt-3.5-turbo", 120*time.Millisecond)
	RecordRateLimitDecision(true)
	RecordRateLimitDecision(false)
	SetTrackedClients(3)
	RecordHealthCheck("upstream_credential", false, time.Millisecond)
	SetServerStartTime(time.Now().Unix())

	assert.Equal(t, 2, collector.CountMetricsByName(SimplifyTotal))
	assert.Positive(t, collector.CountMetricsByName(UpstreamDuration))
	assert.Equal(t, 2, collector.CountMetricsByName(RateLimitDecisionsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(RateLimitTrackedClients))
	assert.Equal(t, 1, collector.CountMetricsByName(HealthCheckTotal))
	assert.Positive(t, collector.CountMetricsByName(HealthCheckDuration))
	assert.Equal(t, 1, collector.CountMetricsByName(ServerStartTime))
}

func TestErrorMetricsEmit(t *testing.T) {
	collector := withCollector(t)

	RecordError("RATE_LIMITED", 429)
	RecordErrorByEndpoint("", "RATE_LIMITED")
	RecordPanic()

	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsTotalName))
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsByEndpointName))
	assert.Equal(t, 1, collector.CountMetricsByName(PanicsTotalName))
}

func TestMetricsNoopWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	assert.NotPanics(t, func() {
		RecordSimplify("m", "success")
		RecordUpstreamDuration("m", time.Second)
		SetTrackedClients(1)
		RecordError("X", 500)
		RecordPanic()
	})
}
