package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/config"
	"github.com/brainboard/brainboard/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.Logger()
		version := crucible.GetVersion()

		log.Info("=== BrainBoard Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + config.AppName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		cfg, err := currentConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = config.DefaultConfigPath() + " (not found)"
		}

		log.Info("Configuration:")
		log.Info("  Config File:      " + configFile)
		log.Info("  API Base URL:     "+cfg.API.BaseURL, zap.String("api_base_url", cfg.API.BaseURL))
		log.Info("  API Timeout:      " + cfg.API.TimeoutOrDefault().String())
		log.Info("  Credential Codec: "+cfg.Session.Codec, zap.String("codec", cfg.Session.Codec))
		log.Info("  Refresh Interval: " + cfg.Session.RefreshInterval.String())
		log.Info("  Max Session Age:  " + cfg.Session.MaxSessionAge.String())
		log.Info(fmt.Sprintf("  Rate Limit:       %d per %s", cfg.RateLimit.MaxPerWindow, cfg.RateLimit.Window))
		log.Info(fmt.Sprintf("  Upload Limit:     %d bytes", cfg.Upload.MaxBytes))
		log.Info("  Store:            "+describeStore(cfg.Store), zap.String("store_driver", cfg.Store.Driver))
		log.Info("  Log Level:        " + cfg.Logging.Level)
		log.Info(fmt.Sprintf("  Mock API:         %s:%d", cfg.Mock.Host, cfg.Mock.Port))
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
