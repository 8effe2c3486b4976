package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/domain"
)

func TestCreateAndGetPreset(t *testing.T) {
	f := newFixture(t, day(2024, time.June, 3))
	ctx := t.Context()

	preset, err := f.svc.PaymentTerms.CreatePreset(ctx, domain.CreatePresetParams{
		Name:            "net-30",
		DaysUntilDue:    30,
		LateFeeType:     domain.LateFeePercentage,
		LateFeeRate:     5,
		GracePeriodDays: 3,
		IsDefault:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LateFeePercentage, preset.LateFeeType)

	got, err := f.svc.PaymentTerms.GetDefaultPreset(ctx)
	require.NoError(t, err)
	assert.Equal(t, preset.ID, got.ID)

	// Empty fee type defaults to none.
	noFee, err := f.svc.PaymentTerms.CreatePreset(ctx, domain.CreatePresetParams{
		Name:         "net-7",
		DaysUntilDue: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LateFeeNone, noFee.LateFeeType)

	all, err := f.svc.PaymentTerms.ListPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.PaymentTerms.CreatePreset(ctx, domain.CreatePresetParams{})
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestApplyPresetSnapshotsPolicy(t *testing.T) {
	f := newFixture(t, day(2024, time.June, 3))
	ctx := t.Context()

	preset, err := f.svc.PaymentTerms.CreatePreset(ctx, domain.CreatePresetParams{
		Name:              "net-14-flat",
		DaysUntilDue:      14,
		LateFeeType:       domain.LateFeeFlat,
		LateFeeFlatAmount: 25,
		GracePeriodDays:   2,
	})
	require.NoError(t, err)

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1,
		ClientID:  2,
		LineItems: singleItem(500),
	})
	require.NoError(t, err)

	inv, err = f.svc.PaymentTerms.ApplyPreset(ctx, inv.ID, preset.ID)
	require.NoError(t, err)

	require.NotNil(t, inv.DueDate)
	assert.Equal(t, day(2024, time.June, 17), *inv.DueDate)
	assert.Equal(t, domain.LateFeeFlat, inv.LateFeeType)
	// Flat presets snapshot the currency amount as the fee magnitude.
	assert.InDelta(t, 25.0, inv.LateFeeRate, 0.001)
	assert.Equal(t, 2, inv.GracePeriodDays)

	// Editing the preset afterwards leaves the invoice untouched.
	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)

	_, err = f.svc.PaymentTerms.ApplyPreset(ctx, inv.ID, preset.ID)
	assert.True(t, domain.IsCode(err, domain.ESTATE))
}

func TestApplyPresetUsesIssuedDate(t *testing.T) {
	f := newFixture(t, day(2024, time.June, 3))
	ctx := t.Context()

	preset, err := f.svc.PaymentTerms.CreatePreset(ctx, domain.CreatePresetParams{
		Name:         "net-10",
		DaysUntilDue: 10,
	})
	require.NoError(t, err)

	issued := day(2024, time.May, 20)
	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID:  1,
		ClientID:   2,
		LineItems:  singleItem(100),
		IssuedDate: &issued,
	})
	require.NoError(t, err)

	inv, err = f.svc.PaymentTerms.ApplyPreset(ctx, inv.ID, preset.ID)
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, day(2024, time.May, 30), *inv.DueDate)
}
