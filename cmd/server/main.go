package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"

	"github.com/openclerk/backoffice/internal"
	"github.com/openclerk/backoffice/internal/api"
	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dispatch"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/payments"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/service"
	"github.com/openclerk/backoffice/internal/telemetry"
	"github.com/openclerk/backoffice/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	logger.Info().Msg("connecting to database")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info().Msg("running database migrations")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := repository.NewPostgres(pool)

	var provider payments.Provider
	if cfg.Stripe.SecretKey != "" {
		stripeProvider, err := payments.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		provider = stripeProvider
		logger.Info().Msg("Stripe provider initialized")
	} else {
		logger.Warn().Msg("no Stripe secret key configured, provider sync disabled")
	}

	metrics := telemetry.NewBusinessMetrics("backoffice")

	services := service.New(store, clock.System(), logger, provider, metrics, service.Options{
		PaidTolerance:  cfg.Billing.PaidTolerance,
		DefaultDueDays: cfg.Billing.DefaultDueDays,
		Profile: domain.BusinessProfile{
			BusinessName:        cfg.Profile.BusinessName,
			BusinessEmail:       cfg.Profile.BusinessEmail,
			PaymentInstructions: cfg.Profile.PaymentInstructions,
			CurrencyCode:        cfg.Profile.CurrencyCode,
			InvoicePrefix:       cfg.Profile.InvoicePrefix,
		},
	})

	var runner *dispatch.Runner
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Drain()

		runner = dispatch.NewRunner(services.Reminders, dispatch.NewNATSDispatcher(nc), logger, metrics)
		logger.Info().Str("url", cfg.NATS.URL).Msg("NATS reminder dispatch enabled")
	} else {
		logger.Warn().Msg("no NATS URL configured, reminder dispatch disabled")
	}

	sweeper := worker.NewWorker(services, runner, worker.Config{
		Interval:   cfg.Worker.Interval,
		RunOnStart: cfg.Worker.RunOnStart,
	}, logger, metrics)
	go func() {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("worker stopped")
		}
	}()

	handler := api.NewHandler(services, provider, cfg.Stripe.WebhookSecret, logger)
	e := api.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Uint16("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
