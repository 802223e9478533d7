package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"pokedex/internal/api"
	"pokedex/internal/audit"
	"pokedex/internal/config"
	"pokedex/internal/observability"
	"pokedex/internal/page"
	"pokedex/internal/upstream"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the Pokémon search site and its JSON API.

Settings come from an optional YAML file and POKEDEX_* environment
variables, environment first. --addr wins over both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger := observability.NewLogger(observability.ConfigFromEnv())
			return runServe(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("POKEDEX_CONFIG"), "path to a YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port)")
	return cmd
}

// app is the wired server: handler chain plus the pieces that need closing
// or periodic upkeep.
type app struct {
	logger  observability.Logger
	handler http.Handler
	pages   *page.MemoryStore
	lookups audit.LookupLogger
	metrics *observability.Metrics
}

func newApp(cfg *config.Config, logger observability.Logger) (*app, error) {
	metricsCfg := observability.MetricsConfigFromEnv()
	metricsCfg.Enabled = cfg.MetricsEnabled
	metricsCfg.Version = appVersion()
	var metrics *observability.Metrics
	if metricsCfg.Enabled {
		metrics = observability.NewMetrics(metricsCfg)
		logger.Info("metrics enabled",
			"namespace", metricsCfg.Namespace,
			"version", metricsCfg.Version,
		)
	} else {
		logger.Info("metrics disabled")
	}

	client := upstream.New(upstream.Options{
		Endpoint: cfg.UpstreamURL,
		Timeout:  cfg.UpstreamTimeout,
		CacheTTL: cfg.CacheTTL,
		Logger:   logger,
		Metrics:  metrics,
	})
	logger.Info("upstream configured", "endpoint", cfg.UpstreamURL, "cache_ttl", cfg.CacheTTL.String())

	rateCfg := api.DefaultRateLimitConfig()
	rateCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateCfg.Burst = cfg.RateLimitBurst
	if proxiesEnv := os.Getenv("POKEDEX_TRUSTED_PROXIES"); proxiesEnv != "" {
		proxies, err := api.ParseTrustedProxies(proxiesEnv)
		if err != nil {
			return nil, fmt.Errorf("POKEDEX_TRUSTED_PROXIES: %w", err)
		}
		rateCfg.Proxies = proxies
		logger.Info("trusted proxies configured", "count", len(proxies.CIDRs))
	}
	if !rateCfg.Enabled() {
		logger.Info("rate limiting disabled")
	} else {
		logger.Info("rate limiting configured",
			"requests_per_second", rateCfg.RequestsPerSecond,
			"burst", rateCfg.Burst,
		)
	}

	lookups := selectLookupLogger(logger, cfg.LookupLogDSN)
	pages := page.NewMemoryStore(cfg.SessionTTL)

	mux := http.NewServeMux()
	srv := api.NewServer(mux, client, logger, metrics, lookups)
	srv.SetPageStore(pages)
	srv.SetPollWait(cfg.PollWait)
	srv.SetRenderWait(cfg.RenderWait)
	srv.RegisterRoutes()

	// Order: metrics (outermost) -> requestID -> logging -> rate limiting.
	handler := api.ApplyMiddlewares(
		mux,
		observability.MetricsMiddleware(metrics),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger.Slog()),
		observability.RateLimitMetricsMiddleware(metrics, rateCfg.Enabled()),
		api.RateLimitMiddleware(rateCfg, logger.Slog()),
	)

	return &app{
		logger:  logger,
		handler: handler,
		pages:   pages,
		lookups: lookups,
		metrics: metrics,
	}, nil
}

// sweep drops idle page sessions once and refreshes the active pages gauge.
func (a *app) sweep(ctx context.Context) {
	n, err := a.pages.Cleanup(ctx)
	if err != nil {
		a.logger.Warn("page session cleanup error", "error", err)
	} else if n > 0 {
		a.logger.Info("cleaned up idle page sessions", "count", n)
	}
	a.metrics.SetActivePages(a.pages.Count())
}

// runCleanup sweeps every interval until ctx is done.
func (a *app) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

// shutdown stops server and then closes the page store and lookup log.
// Parked long-polls are released first so Shutdown does not wait out the
// poll window; sessions created by requests still draining are closed with
// the store.
func (a *app) shutdown(ctx context.Context, server *http.Server) error {
	a.pages.Wake()
	err := server.Shutdown(ctx)
	a.close()
	return err
}

func (a *app) close() {
	a.pages.Close()
	if err := a.lookups.Close(); err != nil {
		a.logger.Error("error closing lookup log", "error", err)
	} else {
		a.logger.Info("lookup log closed")
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger observability.Logger) error {
	sentryEnabled := initSentry(logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go a.runCleanup(cleanupCtx, cfg.CleanupInterval)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("pokedex listening", "addr", cfg.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			runErr = err
		}
	case <-ctx.Done():
		logger.Info("received shutdown signal", "cause", context.Cause(ctx))
	}

	logger.Info("shutting down server", "timeout", shutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	stopCleanup()
	if err := a.shutdown(shutdownCtx, server); err != nil {
		logger.Error("server shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}

	if sentryEnabled {
		logger.Info("flushing sentry events", "deadline", "2s")
		sentry.Flush(2 * time.Second)
	}

	logger.Info("shutdown complete")
	return runErr
}

// initSentry initializes Sentry when SENTRY_DSN is set.
func initSentry(logger observability.Logger) bool {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return false
	}
	environment := envOr("SENTRY_ENVIRONMENT", "production")
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          appVersion(),
		TracesSampleRate: 1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		logger.Warn("sentry initialization failed", "error", err)
		return false
	}
	logger.Info("sentry initialized", "environment", environment, "release", appVersion())
	return true
}
