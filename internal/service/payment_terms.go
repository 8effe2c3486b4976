package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dates"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/repository"
)

type paymentTermsService struct {
	store  repository.Store
	clock  clock.Clock
	logger zerolog.Logger
}

// NewPaymentTermsService creates the payment terms preset manager.
func NewPaymentTermsService(store repository.Store, clk clock.Clock, logger zerolog.Logger) domain.PaymentTermsService {
	return &paymentTermsService{
		store:  store,
		clock:  clk,
		logger: logger.With().Str("service", "payment_terms").Logger(),
	}
}

func (s *paymentTermsService) CreatePreset(ctx context.Context, params domain.CreatePresetParams) (*domain.PaymentTermsPreset, error) {
	const op = "payment_terms.create_preset"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}

	feeType := params.LateFeeType
	if feeType == "" {
		feeType = domain.LateFeeNone
	}

	preset := &domain.PaymentTermsPreset{
		Name:              params.Name,
		DaysUntilDue:      params.DaysUntilDue,
		LateFeeType:       feeType,
		LateFeeRate:       params.LateFeeRate,
		LateFeeFlatAmount: params.LateFeeFlatAmount,
		GracePeriodDays:   params.GracePeriodDays,
		IsDefault:         params.IsDefault,
	}
	if err := s.store.CreatePreset(ctx, preset); err != nil {
		return nil, storeErr(err, op, "preset", 0)
	}

	s.logger.Info().Int64("preset_id", preset.ID).Str("name", preset.Name).Msg("payment terms preset created")
	return preset, nil
}

func (s *paymentTermsService) GetPreset(ctx context.Context, id int64) (*domain.PaymentTermsPreset, error) {
	const op = "payment_terms.get_preset"
	preset, err := s.store.GetPreset(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "preset", id)
	}
	return preset, nil
}

func (s *paymentTermsService) GetDefaultPreset(ctx context.Context) (*domain.PaymentTermsPreset, error) {
	const op = "payment_terms.get_default_preset"
	preset, err := s.store.GetDefaultPreset(ctx)
	if err != nil {
		return nil, storeErr(err, op, "default preset", 0)
	}
	return preset, nil
}

func (s *paymentTermsService) ListPresets(ctx context.Context) ([]domain.PaymentTermsPreset, error) {
	const op = "payment_terms.list_presets"
	out, err := s.store.ListPresets(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list presets")
	}
	return out, nil
}

func (s *paymentTermsService) ApplyPreset(ctx context.Context, invoiceID, presetID int64) (*domain.Invoice, error) {
	const op = "payment_terms.apply_preset"

	preset, err := s.store.GetPreset(ctx, presetID)
	if err != nil {
		return nil, storeErr(err, op, "preset", presetID)
	}

	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, storeErr(err, op, "invoice", invoiceID)
	}
	if inv.Status != domain.StatusDraft {
		return nil, domain.InvalidState(op, "payment terms can only be applied to draft invoices")
	}

	issued := dates.Truncate(s.clock.Now())
	if inv.IssuedDate != nil {
		issued = dates.Truncate(*inv.IssuedDate)
	}

	// Snapshot semantics: the invoice carries the policy values themselves,
	// not a preset reference, so later preset edits leave it untouched.
	due := s.DueDateFromPreset(preset, issued)
	inv.DueDate = &due
	inv.LateFeeType = preset.LateFeeType
	inv.LateFeeRate = preset.FeeMagnitude()
	inv.GracePeriodDays = preset.GracePeriodDays

	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, storeErr(err, op, "invoice", invoiceID)
	}
	return inv, nil
}

func (s *paymentTermsService) DueDateFromPreset(preset *domain.PaymentTermsPreset, issuedDate time.Time) time.Time {
	return dates.Truncate(issuedDate).AddDate(0, 0, preset.DaysUntilDue)
}
