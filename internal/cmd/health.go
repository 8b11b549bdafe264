package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/storycard/storycard/internal/errors"
	"github.com/storycard/storycard/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify configuration, providers and the story renderer.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewInternalError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		cfg := loadConfig()
		logger.Info("✅ Configuration valid")

		svc, err := buildServices(cfg, logger)
		if err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "Story renderer unavailable", err)
			return
		}
		logger.Info("✅ Story renderer ready")

		names := svc.resolver.ProviderNames()
		if cfg.YouTube.APIKey == "" {
			logger.Warn("No API key configured; channel avatars will be unavailable",
				zap.Strings("providers", names))
		}
		logger.Info("✅ Metadata providers configured", zap.Strings("providers", names))

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
