package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/config"
	errwrap "github.com/plainly/plainly/internal/errors"
	"github.com/plainly/plainly/internal/metrics"
	"github.com/plainly/plainly/internal/observability"
	"github.com/plainly/plainly/internal/server"
	"github.com/plainly/plainly/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker reports whether the exporter is running.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

// credentialHealthChecker degrades, rather than fails, when the upstream key is
// absent: the process is alive and every request answers MISSING_CREDENTIAL.
func credentialHealthChecker(upstream config.UpstreamConfig) handlers.CheckerFunc {
	return func(ctx context.Context) error {
		if _, ok := upstream.APIKey(); !ok {
			return fmt.Errorf("%s is not set: %w", upstream.APIKeyEnv, handlers.ErrDegraded)
		}
		return nil
	}
}

func newHealthManager(identity *appidentity.Identity, cfg *config.Config) *handlers.HealthManager {
	hm := handlers.NewHealthManager(versionInfo.Version)
	hm.RegisterChecker("app_identity", identityHealthChecker{
		binaryName: identity.BinaryName,
		envPrefix:  identity.EnvPrefix,
		configName: identity.ConfigName,
	})
	hm.RegisterChecker("upstream_credential", credentialHealthChecker(cfg.Upstream))
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	return hm
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing POST /api/simplify.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config file; log level changes apply, others need a restart

Premium usage counters live in memory and reset on restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadedConfig()
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		observability.InitServerLogger(observability.ServerLoggerOptions{
			Service:     identity.BinaryName,
			Level:       cfg.Logging.Level,
			Environment: cfg.Logging.Environment,
			Namespace:   namespace,
			Format:      cfg.Logging.Format,
		})
		if verbose {
			observability.SetServerLevel("debug")
		}

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		rt, err := newSimplifyRuntime(cfg)
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "simplifier initialization failed")
		}

		if _, ok := cfg.Upstream.APIKey(); !ok {
			observability.ServerLogger.Warn("Upstream API key not set; simplify requests will fail until it is",
				zap.String("env", cfg.Upstream.APIKeyEnv))
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.String("standard_model", cfg.Upstream.StandardModel),
			zap.String("premium_model", cfg.Upstream.PremiumModel),
			zap.Int("premium_limit", rt.Limiter.Limit),
			zap.Duration("window", rt.Limiter.Window))

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
		handlers.SetAppIdentity(identity)

		var health *handlers.HealthManager
		if cfg.Health.Enabled {
			health = newHealthManager(identity, cfg)
		}

		srv := server.New(server.Options{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			Simplifier:      rt.Simplifier,
			Usage:           rt.Usage,
			Health:          health,
			Options:         handlers.NewOptionsResponse(cfg.Upstream.StandardModel, cfg.Upstream.PremiumModel, rt.Limiter.Limit, rt.Limiter.Window),
			PremiumLimit:    rt.Limiter.Limit,
			Window:          rt.Limiter.Window,
			DebugEndpoints:  cfg.Debug.Enabled,
			MetricsPort:     observability.GetMetricsPort(),
			UpstreamTimeout: cfg.Upstream.Timeout,
			ReadTimeout:     cfg.Server.ReadTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server, then metrics, then the logger.
		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ServerLogger.Sync(); err != nil {
				// stderr may already be closed
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ShutdownMetrics(); err != nil {
				observability.ServerLogger.Warn("Metrics exporter stop failed", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: reloading configuration")

			reloaded, err := config.Load(ctx, viper.GetViper(), config.LoadOptions{ConfigFile: cfgFile})
			if err != nil {
				observability.ServerLogger.Error("Config reload failed; keeping current settings", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			if !verbose {
				observability.SetServerLevel(reloaded.Logging.Level)
			}
			observability.ServerLogger.Info("Configuration reloaded",
				zap.String("file", reloaded.Source),
				zap.String("log_level", reloaded.Logging.Level))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
