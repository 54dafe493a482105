package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/config"
	"github.com/plainly/plainly/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration and version information. Secrets are reported as set or not set.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()
		log := observability.CLILogger
		identity := GetAppIdentity()

		log.Info("=== Plainly Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("  Env Prefix: " + identity.EnvPrefix)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		if appCfgErr != nil || appCfg == nil {
			log.Warn("Config load failed", zap.Error(appCfgErr))
			return
		}
		cfg := appCfg

		source := cfg.Source
		if source == "" {
			source = "(none; default path " + config.DefaultConfigPath(cmd.Context()) + ")"
		}

		log.Info("Configuration:")
		log.Info("  Config File:    " + source)
		log.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		log.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info(fmt.Sprintf("  Debug:          %t", cfg.Debug.Enabled))
		log.Info("")

		keyState := "(not set)"
		if _, ok := cfg.Upstream.APIKey(); ok {
			keyState = "(set)"
		}
		log.Info("Upstream:")
		log.Info("  Base URL:       " + cfg.Upstream.BaseURL)
		log.Info("  API Key:        " + cfg.Upstream.APIKeyEnv + " " + keyState)
		log.Info("  Standard Model: " + cfg.Upstream.StandardModel)
		log.Info("  Premium Model:  " + cfg.Upstream.PremiumModel)
		log.Info("  Timeout:        " + cfg.Upstream.Timeout.String())
		log.Info(fmt.Sprintf("  Temperature:    %.2f", cfg.Upstream.Temperature))
		log.Info("")

		log.Info("Premium Rate Limit:")
		log.Info(fmt.Sprintf("  Limit:          %d per %s", cfg.RateLimit.PremiumLimit, cfg.RateLimit.Window))
		if cfg.PromptsDir != "" {
			log.Info("  Prompts Dir:    " + cfg.PromptsDir)
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
