package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dates"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/money"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/telemetry"
)

type lateFeeService struct {
	store   repository.Store
	clock   clock.Clock
	logger  zerolog.Logger
	metrics *telemetry.BusinessMetrics
}

// NewLateFeeService creates the late fee engine.
func NewLateFeeService(
	store repository.Store,
	clk clock.Clock,
	logger zerolog.Logger,
	metrics *telemetry.BusinessMetrics,
) domain.LateFeeService {
	return &lateFeeService{
		store:   store,
		clock:   clk,
		logger:  logger.With().Str("service", "late_fee").Logger(),
		metrics: metrics,
	}
}

// lateFeeFor computes the fee the invoice would incur as of today. Zero means
// no fee is due.
func lateFeeFor(inv *domain.Invoice, today time.Time) float64 {
	if inv.DueDate == nil || inv.Status.Terminal() {
		return 0
	}
	if inv.LateFeeType == domain.LateFeeNone || inv.LateFeeType == "" || inv.LateFeeRate <= 0 {
		return 0
	}

	overdueDays := dates.DaysOverdue(*inv.DueDate, today)
	if overdueDays <= inv.GracePeriodDays {
		return 0
	}

	switch inv.LateFeeType {
	case domain.LateFeeFlat:
		// The rate field carries the flat currency amount for flat policies.
		return money.Round2(inv.LateFeeRate)
	case domain.LateFeePercentage:
		// Percentage fees charge on what is still owed, not the face value.
		return money.Round2(inv.Outstanding() * inv.LateFeeRate / 100)
	case domain.LateFeeDailyPercentage:
		chargeable := overdueDays - inv.GracePeriodDays
		return money.Round2(inv.AmountTotal * inv.LateFeeRate / 100 * float64(chargeable))
	}
	return 0
}

func (s *lateFeeService) CalculateLateFee(ctx context.Context, invoiceID int64) (float64, error) {
	const op = "late_fee.calculate"

	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return 0, storeErr(err, op, "invoice", invoiceID)
	}
	return lateFeeFor(inv, dates.Truncate(s.clock.Now())), nil
}

func (s *lateFeeService) ApplyLateFee(ctx context.Context, invoiceID int64) (*domain.Invoice, error) {
	const op = "late_fee.apply"

	var updated *domain.Invoice
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return storeErr(err, op, "invoice", invoiceID)
		}
		if inv.LateFeeAppliedAt != nil {
			return domain.AlreadyApplied(op, "late fee has already been applied to this invoice")
		}

		now := s.clock.Now()
		fee := lateFeeFor(inv, dates.Truncate(now))
		if fee <= 0 {
			return domain.Invalid(op, "no late fee is due for this invoice")
		}

		// The fee inflates the amount owed rather than living in a side
		// ledger, so the outstanding balance and aging report pick it up
		// with no extra work.
		inv.LateFeeAmount = fee
		inv.AmountTotal = money.Round2(inv.AmountTotal + fee)
		inv.LateFeeAppliedAt = &now

		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return storeErr(err, op, "invoice", inv.ID)
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("invoice_id", updated.ID).
		Float64("fee", updated.LateFeeAmount).
		Float64("amount_total", updated.AmountTotal).
		Msg("late fee applied")

	if s.metrics != nil {
		s.metrics.LateFeesApplied.Inc()
		s.metrics.LateFeeValue.Observe(updated.LateFeeAmount)
	}
	return updated, nil
}

func (s *lateFeeService) ProcessLateFees(ctx context.Context) (domain.SweepResult, error) {
	const op = "late_fee.sweep"

	overdue := domain.StatusOverdue
	candidates, err := s.store.ListInvoices(ctx, domain.InvoiceFilter{Status: &overdue})
	if err != nil {
		return domain.SweepResult{}, domain.Internal(err, op, "failed to list overdue invoices")
	}

	var result domain.SweepResult
	for i := range candidates {
		inv := &candidates[i]
		if inv.LateFeeAppliedAt != nil {
			continue
		}
		if inv.LateFeeType == domain.LateFeeNone || inv.LateFeeType == "" || inv.LateFeeRate <= 0 {
			continue
		}
		if lateFeeFor(inv, dates.Truncate(s.clock.Now())) <= 0 {
			continue
		}

		if _, err := s.ApplyLateFee(ctx, inv.ID); err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("invoice_id", inv.ID).Msg("failed to apply late fee")
			continue
		}
		result.Processed++
	}

	if result.Processed > 0 || result.Failed > 0 {
		s.logger.Info().
			Int("processed", result.Processed).
			Int("failed", result.Failed).
			Msg("late fee sweep finished")
	}
	return result, nil
}
