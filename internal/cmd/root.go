package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/ailink/driver"
	"github.com/plainly/plainly/internal/appid"
	"github.com/plainly/plainly/internal/config"
	"github.com/plainly/plainly/internal/observability"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	// App identity loaded from the embedded .fulmen/app.yaml
	appIdentity *appidentity.Identity

	// Result of the last config load; commands that need settings call loadedConfig.
	appCfg    *config.Config
	appCfgErr error
	stopTrace func()

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity, or the built-in fallback.
func GetAppIdentity() *appidentity.Identity {
	if appIdentity == nil {
		return appid.Fallback()
	}
	return appIdentity
}

var rootCmd = &cobra.Command{
	// NOTE: initConfig() overwrites these from app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Rewrite text at a chosen reading level through a chat-completion model",
	Long: `Rewrite text at a chosen reading level through a chat-completion model.

Run "serve" for the HTTP API or "simplify" for a one-shot rewrite.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopTrace != nil {
			stopTrace()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep config loading quiet until serve installs the real exporter.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.GetOrFallback(context.Background()); identity != nil {
		if err == nil {
			appIdentity = identity
		}
		applyIdentityToHelp(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace upstream requests/responses to an NDJSON file (user text redacted)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func applyIdentityToHelp(identity *appidentity.Identity) {
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nRun \"serve\" for the HTTP API or \"simplify\" for a one-shot rewrite.", identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// initConfig loads identity, logger, tracing and settings. A config error is
// kept rather than fatal so version and envinfo still run.
func initConfig() {
	ctx := context.Background()
	identity, err := appid.GetOrFallback(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using built-in app identity: %v\n", err)
	}
	appIdentity = identity
	applyIdentityToHelp(identity)

	observability.InitCLILogger(identity.BinaryName, verbose)

	if traceFile != "" {
		cleanup, err := driver.EnableTracing(traceFile)
		if err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("Upstream tracing enabled", zap.String("file", traceFile))
			stopTrace = cleanup
		}
	}

	appCfg, appCfgErr = config.Load(ctx, viper.GetViper(), config.LoadOptions{ConfigFile: cfgFile})
	if appCfgErr != nil {
		observability.CLILogger.Debug("Config load failed", zap.Error(appCfgErr))
		return
	}
	if appCfg.Source != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", appCfg.Source))
	} else {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	}
}

// loadedConfig returns the settings or exits with CONFIG_INVALID.
func loadedConfig() *config.Config {
	if appCfgErr != nil || appCfg == nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", appCfgErr)
	}
	return appCfg
}
