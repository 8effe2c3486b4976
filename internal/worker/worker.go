// Package worker runs the engine's periodic sweeps: marking invoices
// overdue, applying late fees, materializing recurring and scheduled
// invoices, and dispatching matured reminders.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/dispatch"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/service"
	"github.com/openclerk/backoffice/internal/telemetry"
)

// Config holds worker configuration.
type Config struct {
	// Interval is how often the sweep cycle runs.
	Interval time.Duration

	// RunOnStart fires one sweep cycle immediately instead of waiting for
	// the first tick.
	RunOnStart bool
}

// Worker drives the background sweep cycle.
type Worker struct {
	config   Config
	services *service.Services
	runner   *dispatch.Runner
	logger   zerolog.Logger
	metrics  *telemetry.BusinessMetrics
}

// NewWorker creates a background sweep worker. runner may be nil when no
// reminder dispatcher is configured.
func NewWorker(
	services *service.Services,
	runner *dispatch.Runner,
	config Config,
	logger zerolog.Logger,
	metrics *telemetry.BusinessMetrics,
) *Worker {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}

	return &Worker{
		config:   config,
		services: services,
		runner:   runner,
		logger:   logger.With().Str("component", "worker").Logger(),
		metrics:  metrics,
	}
}

// Start runs sweep cycles until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.config.Interval).Msg("worker starting")

	if w.config.RunOnStart {
		w.RunOnce(ctx)
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes one full sweep cycle. Ordering matters: invoices must be
// marked overdue before the late fee sweep sees them, and generation runs
// before reminder dispatch so brand new invoices are never reminded early.
func (w *Worker) RunOnce(ctx context.Context) {
	w.sweep(ctx, "mark_overdue", func(ctx context.Context) (domain.SweepResult, error) {
		n, err := w.services.Invoices.CheckAndMarkOverdue(ctx)
		return domain.SweepResult{Processed: n}, err
	})
	w.sweep(ctx, "late_fees", w.services.LateFees.ProcessLateFees)
	w.sweep(ctx, "recurring", w.services.Generator.ProcessRecurringInvoices)
	w.sweep(ctx, "scheduled", w.services.Generator.ProcessScheduledInvoices)

	if w.runner != nil {
		w.sweep(ctx, "reminders", w.runner.Run)
	}
}

func (w *Worker) sweep(ctx context.Context, name string, fn func(context.Context) (domain.SweepResult, error)) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	if w.metrics != nil {
		w.metrics.SweepsRun.WithLabelValues(name).Inc()
		w.metrics.SweepDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		if result.Failed > 0 {
			w.metrics.SweepFailures.WithLabelValues(name).Add(float64(result.Failed))
		}
	}

	if err != nil {
		w.logger.Error().Err(err).Str("sweep", name).Msg("sweep failed")
		return
	}
	if result.Processed > 0 || result.Failed > 0 {
		w.logger.Info().
			Str("sweep", name).
			Int("processed", result.Processed).
			Int("failed", result.Failed).
			Dur("elapsed", elapsed).
			Msg("sweep finished")
	}
}
