package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/billing"
	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dates"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/money"
	"github.com/openclerk/backoffice/internal/payments"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/telemetry"
)

type invoiceService struct {
	store     repository.Store
	terms     domain.PaymentTermsService
	reminders domain.ReminderService
	provider  payments.Provider
	clock     clock.Clock
	logger    zerolog.Logger
	metrics   *telemetry.BusinessMetrics
	opts      Options
}

// NewInvoiceService creates the invoice lifecycle manager.
func NewInvoiceService(
	store repository.Store,
	terms domain.PaymentTermsService,
	reminders domain.ReminderService,
	provider payments.Provider,
	clk clock.Clock,
	logger zerolog.Logger,
	metrics *telemetry.BusinessMetrics,
	opts Options,
) domain.InvoiceService {
	return &invoiceService{
		store:     store,
		terms:     terms,
		reminders: reminders,
		provider:  provider,
		clock:     clk,
		logger:    logger.With().Str("service", "invoice").Logger(),
		metrics:   metrics,
		opts:      opts.withDefaults(),
	}
}

func (s *invoiceService) Create(ctx context.Context, params domain.CreateInvoiceParams) (*domain.Invoice, error) {
	const op = "invoice.create"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}

	invType := params.Type
	if invType == "" {
		invType = domain.InvoiceTypeStandard
	}
	if invType == domain.InvoiceTypeDeposit && params.DepositForProjectID == nil {
		return nil, domain.Invalid(op, "deposit invoices must reference the project they are a deposit for")
	}

	now := s.clock.Now()

	issued := dates.Truncate(now)
	if params.IssuedDate != nil {
		issued = dates.Truncate(*params.IssuedDate)
	}

	inv := &domain.Invoice{
		Number:              "",
		ProjectID:           params.ProjectID,
		ClientID:            params.ClientID,
		Type:                invType,
		DepositForProjectID: params.DepositForProjectID,
		DepositPercentage:   params.DepositPercentage,
		Status:              domain.StatusDraft,
		Currency:            params.Currency,
		TaxRate:             params.TaxRate,
		DiscountType:        params.DiscountType,
		DiscountValue:       params.DiscountValue,
		LateFeeType:         params.LateFeeType,
		LateFeeRate:         params.LateFeeRate,
		IssuedDate:          &issued,
		DueDate:             params.DueDate,
		BusinessName:        params.BusinessName,
		BusinessEmail:       params.BusinessEmail,
		ClientName:          params.ClientName,
		ClientEmail:         params.ClientEmail,
		PaymentInstructions: params.PaymentInstructions,
		Notes:               params.Notes,
	}
	if inv.LateFeeType == "" {
		inv.LateFeeType = domain.LateFeeNone
	}

	// Line amounts are extended from quantity and rate unless the caller
	// supplied them directly.
	inv.LineItems = make([]domain.LineItem, len(params.LineItems))
	for i, item := range params.LineItems {
		if item.Amount == 0 {
			item.Amount = billing.LineAmount(item.Quantity, item.Rate)
		}
		inv.LineItems[i] = item
	}

	s.applyProfileFallbacks(inv)

	// A preset stamps its due-date offset and late-fee policy as a snapshot;
	// later preset edits never touch this invoice.
	if params.PresetID != nil {
		preset, err := s.terms.GetPreset(ctx, *params.PresetID)
		if err != nil {
			return nil, err
		}
		stampPreset(inv, preset, issued)
	}
	if inv.DueDate == nil {
		due := issued.AddDate(0, 0, s.opts.DefaultDueDays)
		inv.DueDate = &due
	}

	totals := billing.ComputeTotals(inv.LineItems, inv.TaxRate, inv.DiscountType, inv.DiscountValue)
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.DiscountAmount = totals.DiscountAmount
	inv.AmountTotal = totals.Total

	prefix := params.Prefix
	if prefix == "" {
		prefix = s.opts.Profile.InvoicePrefix
	}
	number, err := s.nextNumber(ctx, prefix)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to assign invoice number")
	}
	inv.Number = number

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, storeErr(err, op, "invoice", 0)
	}

	s.logger.Info().
		Int64("invoice_id", inv.ID).
		Str("number", inv.Number).
		Str("type", string(inv.Type)).
		Float64("amount_total", inv.AmountTotal).
		Msg("invoice created")

	if s.metrics != nil {
		s.metrics.InvoicesCreated.WithLabelValues(string(inv.Type)).Inc()
		s.metrics.InvoiceValue.Observe(inv.AmountTotal)
	}

	return inv, nil
}

func (s *invoiceService) applyProfileFallbacks(inv *domain.Invoice) {
	p := s.opts.Profile
	if inv.Currency == "" {
		inv.Currency = p.CurrencyCode
	}
	if inv.BusinessName == "" {
		inv.BusinessName = p.BusinessName
	}
	if inv.BusinessEmail == "" {
		inv.BusinessEmail = p.BusinessEmail
	}
	if inv.PaymentInstructions == "" {
		inv.PaymentInstructions = p.PaymentInstructions
	}
}

// nextNumber assigns PREFIX-YYYYMM-NNNN from the per-prefix monthly counter.
func (s *invoiceService) nextNumber(ctx context.Context, prefix string) (string, error) {
	yearMonth := s.clock.Now().Format("200601")
	seq, err := s.store.NextInvoiceSequence(ctx, prefix, yearMonth)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, yearMonth, seq), nil
}

// stampPreset snapshots the preset's due-date offset and late-fee policy
// onto the invoice. An explicit due date on the invoice wins.
func stampPreset(inv *domain.Invoice, preset *domain.PaymentTermsPreset, issued time.Time) {
	if inv.DueDate == nil {
		due := issued.AddDate(0, 0, preset.DaysUntilDue)
		inv.DueDate = &due
	}
	if inv.LateFeeType == "" || inv.LateFeeType == domain.LateFeeNone {
		inv.LateFeeType = preset.LateFeeType
		inv.LateFeeRate = preset.FeeMagnitude()
	}
	inv.GracePeriodDays = preset.GracePeriodDays
}

func (s *invoiceService) Get(ctx context.Context, id int64) (*domain.Invoice, error) {
	const op = "invoice.get"
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}
	return inv, nil
}

func (s *invoiceService) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	const op = "invoice.get_by_number"
	inv, err := s.store.GetInvoiceByNumber(ctx, number)
	if err != nil {
		return nil, storeErr(err, op, "invoice", 0)
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	const op = "invoice.list"
	out, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list invoices")
	}
	return out, nil
}

func (s *invoiceService) Update(ctx context.Context, id int64, params domain.UpdateInvoiceParams) (*domain.Invoice, error) {
	const op = "invoice.update"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}
	if inv.Status != domain.StatusDraft {
		return nil, domain.InvalidState(op, "only draft invoices can be edited")
	}

	if params.LineItems != nil {
		items := make([]domain.LineItem, len(*params.LineItems))
		for i, item := range *params.LineItems {
			if item.Amount == 0 {
				item.Amount = billing.LineAmount(item.Quantity, item.Rate)
			}
			items[i] = item
		}
		inv.LineItems = items
	}
	if params.TaxRate != nil {
		inv.TaxRate = *params.TaxRate
	}
	if params.DiscountType != nil {
		inv.DiscountType = *params.DiscountType
	}
	if params.DiscountValue != nil {
		inv.DiscountValue = *params.DiscountValue
	}
	if params.LateFeeType != nil {
		inv.LateFeeType = *params.LateFeeType
	}
	if params.LateFeeRate != nil {
		inv.LateFeeRate = *params.LateFeeRate
	}
	if params.IssuedDate != nil {
		issued := dates.Truncate(*params.IssuedDate)
		inv.IssuedDate = &issued
	}
	if params.DueDate != nil {
		due := dates.Truncate(*params.DueDate)
		inv.DueDate = &due
	}
	if params.BusinessName != nil {
		inv.BusinessName = *params.BusinessName
	}
	if params.BusinessEmail != nil {
		inv.BusinessEmail = *params.BusinessEmail
	}
	if params.ClientName != nil {
		inv.ClientName = *params.ClientName
	}
	if params.ClientEmail != nil {
		inv.ClientEmail = *params.ClientEmail
	}
	if params.PaymentInstructions != nil {
		inv.PaymentInstructions = *params.PaymentInstructions
	}
	if params.Notes != nil {
		inv.Notes = *params.Notes
	}

	totals := billing.ComputeTotals(inv.LineItems, inv.TaxRate, inv.DiscountType, inv.DiscountValue)
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.DiscountAmount = totals.DiscountAmount
	inv.AmountTotal = totals.Total

	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}
	return inv, nil
}

func (s *invoiceService) Send(ctx context.Context, id int64) (*domain.Invoice, error) {
	const op = "invoice.send"

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}
	if inv.Status != domain.StatusDraft {
		return nil, domain.InvalidState(op, "only draft invoices can be sent")
	}

	inv.Status = domain.StatusSent
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}

	if _, err := s.reminders.ScheduleReminders(ctx, inv.ID); err != nil {
		// The send itself succeeded; a reminder scheduling failure must not
		// roll the invoice back to draft.
		s.logger.Warn().Err(err).Int64("invoice_id", inv.ID).Msg("failed to schedule reminders")
	}

	s.logger.Info().Int64("invoice_id", inv.ID).Str("number", inv.Number).Msg("invoice sent")
	if s.metrics != nil {
		s.metrics.InvoicesSent.Inc()
	}
	return inv, nil
}

func (s *invoiceService) MarkViewed(ctx context.Context, id int64) (*domain.Invoice, error) {
	const op = "invoice.mark_viewed"

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}
	// Only the sent->viewed edge exists; a paid or overdue invoice being
	// re-opened by the client never regresses.
	if inv.Status != domain.StatusSent {
		return inv, nil
	}

	inv.Status = domain.StatusViewed
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}
	return inv, nil
}

func (s *invoiceService) RecordPayment(ctx context.Context, params domain.RecordPaymentParams) (*domain.Invoice, error) {
	const op = "invoice.record_payment"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}
	if params.Amount <= 0 {
		return nil, domain.Invalid(op, "payment amount must be positive")
	}

	var updated *domain.Invoice
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, params.InvoiceID)
		if err != nil {
			return storeErr(err, op, "invoice", params.InvoiceID)
		}

		if inv.Status == domain.StatusPaid {
			return domain.InvalidState(op, "invoice is already paid")
		}
		if inv.Status == domain.StatusCancelled {
			return domain.InvalidState(op, "cannot record a payment on a cancelled invoice")
		}
		if params.Amount > inv.Outstanding()+s.opts.PaidTolerance {
			return domain.Invalid(op, fmt.Sprintf(
				"payment %.2f exceeds outstanding balance %.2f", params.Amount, inv.Outstanding()))
		}

		now := s.clock.Now()
		applyPayment(inv, params.Amount, now, s.opts.PaidTolerance)

		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return storeErr(err, op, "invoice", inv.ID)
		}

		paymentDate := now
		if params.Date != nil {
			paymentDate = *params.Date
		}
		rec := &domain.PaymentRecord{
			InvoiceID: inv.ID,
			Amount:    money.Round2(params.Amount),
			Method:    params.Method,
			Reference: params.Reference,
			Date:      paymentDate,
			Notes:     params.Notes,
		}
		if err := tx.CreatePaymentRecord(ctx, rec); err != nil {
			return domain.Internal(err, op, "failed to record payment history")
		}

		if inv.Status == domain.StatusPaid {
			if err := tx.SkipPendingReminders(ctx, inv.ID); err != nil {
				return domain.Internal(err, op, "failed to skip pending reminders")
			}
		}

		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("invoice_id", updated.ID).
		Float64("amount", params.Amount).
		Str("method", params.Method).
		Str("status", string(updated.Status)).
		Msg("payment recorded")

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.WithLabelValues(params.Method).Inc()
		s.metrics.PaymentValue.Observe(params.Amount)
		if updated.Status == domain.StatusPaid {
			s.metrics.InvoicesPaid.Inc()
			if updated.IssuedDate != nil && updated.PaidDate != nil {
				s.metrics.DaysToPayment.Observe(float64(dates.DaysBetween(*updated.IssuedDate, *updated.PaidDate)))
			}
		}
	}

	return updated, nil
}

func (s *invoiceService) DeleteOrVoid(ctx context.Context, id int64) (domain.DeleteAction, error) {
	const op = "invoice.delete_or_void"

	var action domain.DeleteAction
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, op, "invoice", id)
		}

		switch inv.Status {
		case domain.StatusPaid:
			return domain.InvalidState(op, "paid invoices are immutable")

		case domain.StatusDraft, domain.StatusCancelled:
			// Hard delete, with dependent rows.
			if err := tx.DeleteRemindersForInvoice(ctx, inv.ID); err != nil {
				return domain.Internal(err, op, "failed to delete reminders")
			}
			if err := tx.DeleteCreditsForInvoice(ctx, inv.ID); err != nil {
				return domain.Internal(err, op, "failed to delete credits")
			}
			if err := tx.DeleteInvoice(ctx, inv.ID); err != nil {
				return storeErr(err, op, "invoice", inv.ID)
			}
			action = domain.ActionDeleted
			return nil

		default:
			// Issued invoices keep their audit trail and are soft-voided.
			inv.Status = domain.StatusCancelled
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return storeErr(err, op, "invoice", inv.ID)
			}
			if err := tx.SkipPendingReminders(ctx, inv.ID); err != nil {
				return domain.Internal(err, op, "failed to skip pending reminders")
			}
			action = domain.ActionVoided
			return nil
		}
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().Int64("invoice_id", id).Str("action", string(action)).Msg("invoice removed")
	if s.metrics != nil && action == domain.ActionVoided {
		s.metrics.InvoicesVoided.Inc()
	}
	return action, nil
}

func (s *invoiceService) CheckAndMarkOverdue(ctx context.Context) (int, error) {
	const op = "invoice.check_overdue"

	today := dates.Truncate(s.clock.Now())
	candidates, err := s.store.ListInvoices(ctx, domain.InvoiceFilter{
		Statuses:  []domain.InvoiceStatus{domain.StatusSent, domain.StatusViewed, domain.StatusPartial},
		DueBefore: &today,
	})
	if err != nil {
		return 0, domain.Internal(err, op, "failed to list due invoices")
	}

	changed := 0
	for i := range candidates {
		inv := candidates[i]
		inv.Status = domain.StatusOverdue
		if err := s.store.UpdateInvoice(ctx, &inv); err != nil {
			s.logger.Error().Err(err).Int64("invoice_id", inv.ID).Msg("failed to mark invoice overdue")
			continue
		}
		changed++
		if s.metrics != nil {
			s.metrics.InvoicesOverdue.Inc()
		}
	}

	if changed > 0 {
		s.logger.Info().Int("count", changed).Msg("invoices marked overdue")
	}
	return changed, nil
}

func (s *invoiceService) Duplicate(ctx context.Context, id int64) (*domain.Invoice, error) {
	const op = "invoice.duplicate"

	src, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "invoice", id)
	}

	params := domain.CreateInvoiceParams{
		ProjectID:           src.ProjectID,
		ClientID:            src.ClientID,
		Currency:            src.Currency,
		Type:                src.Type,
		DepositForProjectID: src.DepositForProjectID,
		DepositPercentage:   src.DepositPercentage,
		LineItems:           append([]domain.LineItem(nil), src.LineItems...),
		TaxRate:             src.TaxRate,
		DiscountType:        src.DiscountType,
		DiscountValue:       src.DiscountValue,
		LateFeeType:         src.LateFeeType,
		LateFeeRate:         src.LateFeeRate,
		BusinessName:        src.BusinessName,
		BusinessEmail:       src.BusinessEmail,
		ClientName:          src.ClientName,
		ClientEmail:         src.ClientEmail,
		PaymentInstructions: src.PaymentInstructions,
		Notes:               src.Notes,
	}

	// Preserve the source's issue-to-due day offset relative to today.
	if src.IssuedDate != nil && src.DueDate != nil {
		offset := dates.DaysBetween(*src.IssuedDate, *src.DueDate)
		due := dates.Truncate(s.clock.Now()).AddDate(0, 0, offset)
		params.DueDate = &due
	}

	dup, err := s.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	dup.GracePeriodDays = src.GracePeriodDays
	if src.GracePeriodDays != 0 {
		if err := s.store.UpdateInvoice(ctx, dup); err != nil {
			return nil, storeErr(err, op, "invoice", dup.ID)
		}
	}
	return dup, nil
}

func (s *invoiceService) Payments(ctx context.Context, invoiceID int64) ([]domain.PaymentRecord, error) {
	const op = "invoice.payments"

	if _, err := s.store.GetInvoice(ctx, invoiceID); err != nil {
		return nil, storeErr(err, op, "invoice", invoiceID)
	}
	out, err := s.store.ListPayments(ctx, invoiceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list payments")
	}
	return out, nil
}

func (s *invoiceService) SyncFromProvider(ctx context.Context, providerInvoiceID string) error {
	const op = "invoice.sync_from_provider"

	if s.provider == nil {
		return domain.Invalid(op, "no payment provider configured")
	}

	remote, err := s.provider.GetInvoice(ctx, providerInvoiceID)
	if err != nil {
		return domain.Internal(err, op, "failed to fetch provider invoice")
	}

	return s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoiceByProviderID(ctx, providerInvoiceID)
		if err != nil {
			return storeErr(err, op, "invoice", 0)
		}
		if inv.Status.Terminal() && remote.State != payments.StateVoid {
			return nil
		}
		inv, err = tx.GetInvoiceForUpdate(ctx, inv.ID)
		if err != nil {
			return storeErr(err, op, "invoice", inv.ID)
		}

		switch remote.State {
		case payments.StateVoid, payments.StateUncollectible:
			if inv.Status.Terminal() {
				return nil
			}
			inv.Status = domain.StatusCancelled
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return storeErr(err, op, "invoice", inv.ID)
			}
			return tx.SkipPendingReminders(ctx, inv.ID)

		case payments.StatePaid, payments.StateOpen:
			// Webhooks redeliver; only the uncollected delta is applied.
			delta := money.Round2(remote.AmountPaid - inv.AmountPaid)
			if delta <= 0 {
				return nil
			}

			now := s.clock.Now()
			applyPayment(inv, delta, now, s.opts.PaidTolerance)
			if remote.State == payments.StatePaid {
				inv.Status = domain.StatusPaid
				if inv.PaidDate == nil {
					paidAt := now
					if remote.PaidAt != nil {
						paidAt = *remote.PaidAt
					}
					inv.PaidDate = &paidAt
				}
			}

			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return storeErr(err, op, "invoice", inv.ID)
			}
			rec := &domain.PaymentRecord{
				InvoiceID: inv.ID,
				Amount:    delta,
				Method:    "provider",
				Reference: remote.ID,
				Date:      s.clock.Now(),
			}
			if err := tx.CreatePaymentRecord(ctx, rec); err != nil {
				return domain.Internal(err, op, "failed to record payment history")
			}
			if inv.Status == domain.StatusPaid {
				return tx.SkipPendingReminders(ctx, inv.ID)
			}
			return nil
		}

		return nil
	})
}
