package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/covid-stats/internal/api/http"
	"github.com/i474232898/covid-stats/internal/common"
	"github.com/i474232898/covid-stats/internal/config"
	"github.com/i474232898/covid-stats/internal/covid"
	"github.com/i474232898/covid-stats/internal/covid/providers"
	"github.com/i474232898/covid-stats/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	common.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := providers.NewClient(httpClient, cfg.BaseURL, cfg.UserAgent)

	// Core service: country list + history, retried with backoff behind a circuit breaker.
	service := covid.NewService(
		providers.NewCountryRepository(client),
		providers.NewHistoricalFetcher(client),
		covid.WithBackoff(covid.BackoffConfig{
			MaxRetries:      cfg.RetryMax,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		}),
	)

	sched := scheduler.New(cfg.ProbeInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "covid-stats",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service, sched)

	go func() {
		log.Info().Str("port", cfg.Port).Str("provider", cfg.BaseURL).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Err(err).Msg("error during shutdown")
	}
}
