package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/config"
	"github.com/storycard/storycard/internal/core/throttle"
	errwrap "github.com/storycard/storycard/internal/errors"
	"github.com/storycard/storycard/internal/metrics"
	"github.com/storycard/storycard/internal/observability"
	"github.com/storycard/storycard/internal/server"
	"github.com/storycard/storycard/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// providersHealthChecker reports whether any metadata provider is configured.
type providersHealthChecker struct {
	names []string
}

func (p providersHealthChecker) CheckHealth(ctx context.Context) error {
	if len(p.names) == 0 {
		return errwrap.NewServiceUnavailableError("no metadata providers configured")
	}
	return nil
}

// rendererHealthChecker reports whether the story font loaded.
type rendererHealthChecker struct {
	ready bool
}

func (r rendererHealthChecker) CheckHealth(ctx context.Context) error {
	if !r.ready {
		return errwrap.NewServiceUnavailableError("story renderer not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Routes:
  GET /metadata?url=...      resolve a video link (10 req/min per client)
  GET /proxy-image?url=...   fetch an allow-listed image (30 req/min per client)
  GET /story.png?url=...     export the story card (5 req/min per client)

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read and validate the config file (applied on restart)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	observability.InitServerLogger(observability.ServerLoggerOptions{
		Service:   identity.BinaryName,
		Level:     cfg.Logging.Level,
		Namespace: namespace,
	})
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return errwrap.WrapRender(cmd.Context(), err, "story renderer initialization failed")
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.Strings("metadata_providers", svc.resolver.ProviderNames()))

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	hm.RegisterChecker("metadata_providers", providersHealthChecker{names: svc.resolver.ProviderNames()})
	hm.RegisterChecker("story_renderer", rendererHealthChecker{ready: svc.renderer != nil})

	handlers.SetAppIdentity(identity)

	srv := server.New(server.Options{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Resolver:      svc.resolver,
		Proxy:         svc.proxy,
		Renderer:      svc.renderer,
		Policies:      policiesFromConfig(cfg.Throttle),
		StoryFilename: cfg.Render.Filename,
		AdminToken:    cfg.Server.AdminToken,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
	})

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: HTTP server, then metrics, then logger flush.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := observability.SyncLoggers(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if err := observability.ShutdownMetrics(); err != nil {
			logger.Warn("Metrics exporter shutdown failed", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: attempting config reload")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				logger.Info("No config file found - using defaults and environment variables")
				return nil
			}
			logger.Error("Failed to reload config file",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Error(err))
			return errwrap.WrapInvalidInput(ctx, err, "config reload failed")
		}

		reloaded, err := config.Load(viper.GetViper())
		if err != nil {
			return errwrap.WrapInvalidInput(ctx, err, "config reload failed")
		}

		// The running server keeps its limits, providers and log level until restart.
		logger.Info("Configuration reloaded successfully",
			zap.String("file", viper.ConfigFileUsed()),
			zap.String("log_level", reloaded.Logging.Level))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	metrics.SetServerStartTime(time.Now().Unix())

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "server error")
	}

	return nil
}

func policiesFromConfig(cfg config.ThrottleConfig) server.Policies {
	return server.Policies{
		Metadata: cfg.Metadata.Policy(throttle.MetadataPolicy),
		Proxy:    cfg.Proxy.Policy(throttle.ProxyPolicy),
		Story:    cfg.Story.Policy(throttle.StoryPolicy),
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
