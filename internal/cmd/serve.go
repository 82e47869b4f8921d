package cmd

import (
	"context"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/config"
	errwrap "github.com/brainboard/brainboard/internal/errors"
	"github.com/brainboard/brainboard/internal/mockapi"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/server"
	"github.com/brainboard/brainboard/internal/server/handlers"
)

// adminTokenEnv enables the signal endpoint when set.
const adminTokenEnv = "BRAINBOARD_ADMIN_TOKEN"

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures the telemetry system and exporter are up.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.WrapInternal(ctx, nil, "telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "mock-serve",
	Short: "Serve the simulated feed API locally",
	Long: `Serve an in-memory simulation of the BrainBoard feed API under /v1,
seeded with sample posts and a demo account (` + mockapi.DemoEmail + ` / ` + mockapi.DemoPassword + `).

Point the client at it with --api-url http://localhost:8787/v1.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config file reload`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, cfg.Logging.Environment)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		var signingKey []byte
		if raw := strings.TrimSpace(cfg.Mock.SigningKey); raw != "" {
			if signingKey, err = hex.DecodeString(raw); err != nil {
				signingKey = []byte(raw)
			}
		}

		api, err := mockapi.New(mockapi.Config{
			TokenTTL:       cfg.Mock.TokenTTL,
			RefreshTTL:     cfg.Mock.RefreshTTL,
			SigningKey:     signingKey,
			MaxUploadBytes: cfg.Upload.MaxBytes,
			UploadDir:      cfg.Mock.UploadDir,
		})
		if err != nil {
			return errwrap.WrapInternal(ctx, err, "simulated API initialization failed")
		}

		host := cfg.Mock.Host
		if cmd.Flags().Changed("host") {
			host = serverHost
		}
		port := cfg.Mock.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		checks := map[string]handlers.HealthChecker{"feed": api}
		if cfg.Metrics.Enabled {
			checks["telemetry"] = telemetryHealthChecker{}
		}

		srv := server.New(server.Options{
			Host:       host,
			Port:       port,
			Version:    versionInfo.Version,
			API:        api.Handler(),
			Checks:     checks,
			AdminToken: os.Getenv(adminTokenEnv),
		})
		if err := srv.Listen(); err != nil {
			return errwrap.WrapInternal(ctx, err, "server listen failed")
		}

		observability.ServerLogger.Info("Simulated feed API listening",
			zap.String("base_url", "http://"+srv.Addr()+server.APIPrefix),
			zap.String("version", versionInfo.Version),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.MetricsPort()))

		shutdownTimeout := cfg.Mock.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: the server stops before the logger flushes.
		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ServerLogger.Sync(); err != nil {
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})
		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}
			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: reloading config file")
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapInvalidInput(ctx, err, "config reload failed")
			}
			reloaded, err := config.Load(viper.GetViper())
			if err != nil {
				return errwrap.WrapInvalidInput(ctx, err, "config reload failed")
			}
			appConfig = reloaded
			// Only the log level changes at runtime; the rest applies on restart.
			observability.InitServerLogger(config.AppName, reloaded.Logging.Level, reloaded.Logging.Environment)
			observability.ServerLogger.Info("Configuration reloaded", zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil {
				errChan <- err
			}
		}()
		go func() {
			if err := signals.Listen(ctx); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8787, "server port (0 picks a free port)")
}
