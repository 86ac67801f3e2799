package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hookline-systems/hookline/common/logging"
	"github.com/hookline-systems/hookline/internal/config"
	"github.com/hookline-systems/hookline/internal/handlers"
	"github.com/hookline-systems/hookline/internal/ratelimit"
	"github.com/hookline-systems/hookline/internal/server"
	"github.com/hookline-systems/hookline/internal/service"
	"github.com/hookline-systems/hookline/internal/telegram"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Missing required configuration is fatal: refuse to start rather than
	// run half-configured.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("hookline"))
	logging.SetDefault(logger)

	slog.Info("Starting hookline relay",
		slog.Int("port", cfg.Server.Port),
		slog.Int("timestamp_tolerance_seconds", cfg.Webhook.ToleranceSeconds),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize rate limiter
	var limiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.RateLimit.Enabled {
		rl, err := ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting",
				logging.Error(err))
			limiter = &ratelimit.NoOpRateLimiter{}
		} else {
			limiter = rl
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				slog.Duration("window", cfg.RateLimit.Window),
			)
		}
	} else {
		limiter = &ratelimit.NoOpRateLimiter{}
		slog.Info("Rate limiting disabled")
	}
	defer limiter.Close()

	// The channel and its transport live for the whole process; Close runs
	// exactly once on any shutdown path.
	channel := telegram.NewChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	defer channel.Close()
	slog.Info("Telegram notification channel initialized")

	processor := service.NewProcessor(cfg.Webhook.Secret, cfg.Webhook.ToleranceSeconds, channel, logger)
	handler := handlers.NewWebhookHandler(processor, limiter, logger)
	router := server.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Relay listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Relay stopped")
}
