package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/money"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/telemetry"
)

type creditService struct {
	store   repository.Store
	clock   clock.Clock
	logger  zerolog.Logger
	metrics *telemetry.BusinessMetrics
	opts    Options
}

// NewCreditService creates the deposit credit ledger manager.
func NewCreditService(
	store repository.Store,
	clk clock.Clock,
	logger zerolog.Logger,
	metrics *telemetry.BusinessMetrics,
	opts Options,
) domain.CreditService {
	return &creditService{
		store:   store,
		clock:   clk,
		logger:  logger.With().Str("service", "credit").Logger(),
		metrics: metrics,
		opts:    opts.withDefaults(),
	}
}

func (s *creditService) ApplyCredit(ctx context.Context, params domain.ApplyCreditParams) (*domain.InvoiceCredit, error) {
	const op = "credit.apply"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}
	if params.InvoiceID == params.DepositInvoiceID {
		return nil, domain.Invalid(op, "an invoice cannot credit itself")
	}

	var credit *domain.InvoiceCredit
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		// Both rows are locked for the duration so two concurrent
		// applications cannot both read the same unallocated balance.
		deposit, err := tx.GetInvoiceForUpdate(ctx, params.DepositInvoiceID)
		if err != nil {
			return storeErr(err, op, "deposit invoice", params.DepositInvoiceID)
		}
		target, err := tx.GetInvoiceForUpdate(ctx, params.InvoiceID)
		if err != nil {
			return storeErr(err, op, "invoice", params.InvoiceID)
		}

		if deposit.Type != domain.InvoiceTypeDeposit {
			return domain.InvalidState(op, "source invoice is not a deposit")
		}
		if deposit.Status != domain.StatusPaid {
			return domain.InvalidState(op, "deposit invoice must be paid before its credit can be applied")
		}
		if target.Type == domain.InvoiceTypeDeposit {
			return domain.InvalidState(op, "cannot apply credit to another deposit invoice")
		}
		if target.Status.Terminal() {
			return domain.InvalidState(op, "cannot apply credit to a paid or cancelled invoice")
		}

		applied, err := tx.SumCreditsForDeposit(ctx, deposit.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to sum applied credits")
		}
		available := money.Round2(deposit.AmountTotal - applied)
		if params.Amount > available {
			return domain.InsufficientCredit(op, params.Amount, available)
		}
		if remaining := target.Outstanding(); params.Amount > remaining+s.opts.PaidTolerance {
			return domain.Invalid(op, "credit exceeds the invoice's outstanding balance")
		}

		// Unattributed applications still get a unique actor id so two
		// system-driven ledger entries are never indistinguishable.
		appliedBy := params.AppliedBy
		if appliedBy == "" {
			appliedBy = "system-" + uuid.NewString()
		}

		now := s.clock.Now()
		credit = &domain.InvoiceCredit{
			InvoiceID:        target.ID,
			DepositInvoiceID: deposit.ID,
			Amount:           money.Round2(params.Amount),
			AppliedAt:        now,
			AppliedBy:        appliedBy,
		}
		if err := tx.CreateCredit(ctx, credit); err != nil {
			return domain.Internal(err, op, "failed to write credit ledger entry")
		}

		applyPayment(target, credit.Amount, now, s.opts.PaidTolerance)
		if err := tx.UpdateInvoice(ctx, target); err != nil {
			return storeErr(err, op, "invoice", target.ID)
		}
		if target.Status == domain.StatusPaid {
			if err := tx.SkipPendingReminders(ctx, target.ID); err != nil {
				return domain.Internal(err, op, "failed to skip pending reminders")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("invoice_id", credit.InvoiceID).
		Int64("deposit_invoice_id", credit.DepositInvoiceID).
		Float64("amount", credit.Amount).
		Msg("deposit credit applied")

	if s.metrics != nil {
		s.metrics.CreditsApplied.Inc()
		s.metrics.CreditValue.Observe(credit.Amount)
	}
	return credit, nil
}

func (s *creditService) GetAvailableDeposits(ctx context.Context, projectID int64) ([]domain.DepositAvailability, error) {
	const op = "credit.available_deposits"

	depositType := domain.InvoiceTypeDeposit
	paid := domain.StatusPaid
	deposits, err := s.store.ListInvoices(ctx, domain.InvoiceFilter{
		ProjectID: &projectID,
		Type:      &depositType,
		Status:    &paid,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list deposit invoices")
	}

	var out []domain.DepositAvailability
	for _, deposit := range deposits {
		applied, err := s.store.SumCreditsForDeposit(ctx, deposit.ID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to sum applied credits")
		}
		available := money.Round2(deposit.AmountTotal - applied)
		if available <= 0 {
			continue
		}
		out = append(out, domain.DepositAvailability{
			Invoice:   deposit,
			Applied:   money.Round2(applied),
			Available: available,
		})
	}
	return out, nil
}

func (s *creditService) CreditsForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceCredit, error) {
	const op = "credit.for_invoice"

	out, err := s.store.ListCreditsForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list credits")
	}
	return out, nil
}
