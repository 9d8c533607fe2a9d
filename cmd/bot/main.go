// Package main is the entry point for the VeloBrief bot.
//
// It loads the configuration, wires the forecast provider, the chat sender
// and the conversation engine, and mounts the Telegram webhook on the core
// chassis.
//
// Outside AWS Lambda the bot runs as a standalone HTTP server on the
// configured port, alongside the session janitor. Inside Lambda the same
// router is served through the Function URL adapter.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"velobrief/internal/api/handlers"
	"velobrief/internal/bot"
	"velobrief/internal/config"
	"velobrief/internal/core"
	"velobrief/internal/external"
	"velobrief/internal/forecast"
	"velobrief/internal/metrics"
	"velobrief/internal/types"
)

// forecastCacheEntries bounds the number of cached lookups.
const forecastCacheEntries = 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("velobrief bot starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		return runLambda(ctx, app, logger)
	}
	return runHTTPServer(ctx, app, logger)
}

// application holds the wired components shared by both run modes.
type application struct {
	cfg      *config.Config
	server   *core.Server
	store    *bot.Store
	recorder metrics.Recorder
}

// buildApp wires every collaborator from the configuration.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	policy, err := forecast.ParseAdvicePolicy(cfg.Briefing.AdvicePolicy)
	if err != nil {
		return nil, fmt.Errorf("briefing advice policy: %w", err)
	}
	fallbackZone, err := time.LoadLocation(cfg.Briefing.TimezoneFallback)
	if err != nil {
		return nil, fmt.Errorf("briefing timezone fallback: %w", err)
	}

	recorder, err := newRecorder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	userAgent := "VeloBrief/" + cfg.Build.Version

	weatherBase := external.NewBaseClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		"openweathermap",
		external.DefaultRetryPolicy(),
		userAgent,
		external.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Weather.RPS), cfg.Weather.Burst)),
	)
	owm := external.NewOpenWeatherClient(weatherBase, external.OpenWeatherConfig{
		APIKey:   cfg.Weather.APIKey,
		BaseURL:  cfg.Weather.APIURL,
		Language: cfg.Weather.Language,
		Logger:   logger,
	})
	forecaster := external.NewCachedForecastSource(owm, cfg.Weather.CacheTTL, forecastCacheEntries, types.RealClock{})

	// Delivery is not retried: a duplicate reply is worse than a missing one.
	chatBase := external.NewBaseClient(
		&http.Client{Timeout: cfg.Telegram.Timeout},
		"telegram",
		external.RetryPolicy{},
		userAgent,
	)
	sender := external.NewTelegramClient(chatBase, external.TelegramConfig{
		Token:   cfg.Telegram.Token,
		BaseURL: cfg.Telegram.APIURL,
		Logger:  logger,
	})

	store := bot.NewStore(bot.StoreOptions{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
	}, types.RealClock{})

	composer := forecast.NewComposer(forecast.WindowOptions{
		Horizon:  cfg.Briefing.Horizon,
		MaxCount: cfg.Briefing.MaxSamples,
	}, policy, fallbackZone)

	machine := bot.NewMachine(store, forecaster, sender, composer,
		bot.WithMetrics(recorder),
		bot.WithLogger(logger),
		bot.WithLookupTimeout(cfg.Weather.LookupBudget),
		bot.WithReplyTimeout(cfg.Telegram.Timeout),
	)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.HealthChecks = []core.HealthCheck{
		external.NewBreakerCheck("forecast_provider", weatherBase),
		external.NewBreakerCheck("chat_api", chatBase),
	}
	srv.SessionCount = store.Len

	webhook := handlers.NewTelegramWebhookHandler(machine, srv.Validator, cfg.Telegram.WebhookSecret, logger)
	srv.RouteRegistrars = append(srv.RouteRegistrars, webhook.RegisterRoutes)
	srv.MountRoutes()

	logger.Info("bot wired",
		"advice_policy", string(composer.Policy()),
		"horizon", cfg.Briefing.Horizon.String(),
		"max_samples", cfg.Briefing.MaxSamples,
		"session_ttl", cfg.Session.TTL.String(),
		"max_sessions", cfg.Session.MaxSessions,
		"forecast_cache_ttl", cfg.Weather.CacheTTL.String(),
		"webhook_secret_set", cfg.Telegram.WebhookSecret.IsSet(),
	)

	return &application{cfg: cfg, server: srv, store: store, recorder: recorder}, nil
}

// newRecorder returns the CloudWatch recorder when metrics are enabled and
// the no-op recorder otherwise.
func newRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (metrics.Recorder, error) {
	if !cfg.Observability.MetricsEnabled {
		return metrics.Noop{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Observability.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}
	return metrics.NewCloudWatchRecorder(
		cloudwatch.NewFromConfig(awsCfg),
		cfg.Observability.MetricNamespace,
		&slogAdapter{logger: logger},
	), nil
}

// runJanitor evicts idle sessions until ctx is done.
func (a *application) runJanitor(ctx context.Context, logger *slog.Logger) {
	a.store.RunJanitor(ctx, a.cfg.Session.SweepInterval, func(removed, remaining int) {
		a.recorder.RecordSessions(ctx, remaining)
		if removed > 0 {
			logger.Debug("sessions swept", "removed", removed, "remaining", remaining)
		}
	})
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runLambda serves Function URL invocations. The janitor runs between
// invocations while the execution environment is warm.
func runLambda(ctx context.Context, app *application, logger *slog.Logger) error {
	go app.runJanitor(ctx, logger)

	logger.Info("serving Lambda Function URL invocations")
	lambda.StartWithOptions(
		core.NewFunctionURLHandler(app.server.Handler()),
		lambda.WithEnableSIGTERM(func() { logger.Info("lambda runtime shutting down") }),
	)
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(ctx context.Context, app *application, logger *slog.Logger) error {
	addr := ":" + app.cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           app.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      app.cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		app.runJanitor(gctx, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		// Graceful shutdown with a 10-second deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}

// slogAdapter wraps *slog.Logger to satisfy types.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Compile-time assertion that slogAdapter implements types.Logger.
var _ types.Logger = (*slogAdapter)(nil)
