package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/observability"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"debug":   "DEBUG",
		" Info ":  "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"ERROR":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, observability.ParseLogLevel(in), "input %q", in)
	}
}

func TestLoggers(t *testing.T) {
	t.Run("cli logger", func(t *testing.T) {
		observability.InitCLILogger("plainly-test", true)
		require.NotNil(t, observability.CLILogger)
		observability.CLILogger.Debug("cli debug message", zap.String("mode", "verbose"))
	})

	t.Run("server logger json", func(t *testing.T) {
		observability.InitServerLogger(observability.ServerLoggerOptions{
			Service:   "plainly-test",
			Level:     "info",
			Namespace: "plainly",
		})
		require.NotNil(t, observability.ServerLogger)
		observability.ServerLogger.Info("simplify served",
			zap.String("client_id", "203.0.113.9"),
			zap.String("model", "gpt-3.5-turbo"))
	})

	t.Run("server logger console format", func(t *testing.T) {
		logger, err := observability.NewServerLogger(observability.ServerLoggerOptions{
			Service:     "plainly-test",
			Level:       "debug",
			Environment: "test",
			Format:      "console",
		})
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Debug("console sink")
	})
}

func TestShutdownMetricsWithoutInit(t *testing.T) {
	require.NoError(t, observability.ShutdownMetrics())
	assert.Nil(t, observability.TelemetrySystem)
	assert.Nil(t, observability.PrometheusExporter)
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
	assert.NotEmpty(t, crucible.GetVersionString())
}
