package domain

import (
	"context"
	"time"
)

// PaymentTermsPreset is a named template of due-date offset and late-fee
// policy. Applying a preset stamps a point-in-time snapshot onto the invoice;
// later edits to the preset do not touch invoices already using it.
type PaymentTermsPreset struct {
	ID                int64
	Name              string
	DaysUntilDue      int
	LateFeeType       LateFeeType
	LateFeeRate       float64
	LateFeeFlatAmount float64
	GracePeriodDays   int
	IsDefault         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FeeMagnitude returns the value to snapshot into an invoice's lateFeeRate
// field: the flat currency amount for flat presets, the rate otherwise.
func (p *PaymentTermsPreset) FeeMagnitude() float64 {
	if p.LateFeeType == LateFeeFlat {
		return p.LateFeeFlatAmount
	}
	return p.LateFeeRate
}

// CreatePresetParams contains parameters for creating a preset.
type CreatePresetParams struct {
	Name              string `validate:"required"`
	DaysUntilDue      int    `validate:"gte=0"`
	LateFeeType       LateFeeType
	LateFeeRate       float64 `validate:"gte=0"`
	LateFeeFlatAmount float64 `validate:"gte=0"`
	GracePeriodDays   int     `validate:"gte=0"`
	IsDefault         bool
}

// PaymentTermsService manages reusable payment terms presets.
type PaymentTermsService interface {
	// CreatePreset creates a named preset; names are unique.
	CreatePreset(ctx context.Context, params CreatePresetParams) (*PaymentTermsPreset, error)

	// GetPreset retrieves a preset by id.
	GetPreset(ctx context.Context, id int64) (*PaymentTermsPreset, error)

	// GetDefaultPreset retrieves the preset flagged as default.
	GetDefaultPreset(ctx context.Context) (*PaymentTermsPreset, error)

	// ListPresets lists all presets.
	ListPresets(ctx context.Context) ([]PaymentTermsPreset, error)

	// ApplyPreset stamps the preset's due-date offset and late-fee policy
	// onto a draft invoice as a snapshot.
	ApplyPreset(ctx context.Context, invoiceID, presetID int64) (*Invoice, error)

	// DueDateFromPreset computes issuedDate + daysUntilDue.
	DueDateFromPreset(preset *PaymentTermsPreset, issuedDate time.Time) time.Time
}
