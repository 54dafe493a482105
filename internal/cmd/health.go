package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/ailink/prompt"
	errwrap "github.com/plainly/plainly/internal/errors"
	"github.com/plainly/plainly/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify the service could start: version info, configuration, the simplify
prompt and the upstream credential. A missing credential is reported as a
warning because the server still starts without one.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		log.Debug("Version check passed", zap.String("version", versionInfo.Version))
		log.Info("✅ Version information available")

		if appCfgErr != nil || appCfg == nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid", appCfgErr)
			return
		}
		log.Info("✅ Configuration loaded")

		if _, err := prompt.Resolve(appCfg.PromptsDir, prompt.SimplifySlug); err != nil {
			ExitWithCode(log, foundry.ExitFileNotFound, "Simplify prompt could not be loaded", err)
			return
		}
		log.Info("✅ Simplify prompt loaded")

		if _, ok := appCfg.Upstream.APIKey(); ok {
			log.Info("✅ Upstream credential present")
		} else {
			log.Warn("⚠️  Upstream credential missing; requests will fail with MISSING_CREDENTIAL",
				zap.String("env", appCfg.Upstream.APIKeyEnv))
		}

		log.Info("")
		log.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
