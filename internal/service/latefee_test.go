package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/domain"
)

// overdueInvoice creates a sent invoice with the given fee policy, due in the
// past, and sweeps it into overdue.
func overdueInvoice(t *testing.T, f *fixture, svc *Services, amount float64, feeType domain.LateFeeType, rate float64, grace int, due time.Time) *domain.Invoice {
	t.Helper()
	ctx := context.Background()

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID:   1,
		ClientID:    2,
		LineItems:   singleItem(amount),
		LateFeeType: feeType,
		LateFeeRate: rate,
		DueDate:     &due,
	})
	require.NoError(t, err)

	if grace > 0 {
		stored, err := f.store.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		stored.GracePeriodDays = grace
		require.NoError(t, f.store.UpdateInvoice(ctx, stored))
	}

	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)
	_, err = svc.Invoices.CheckAndMarkOverdue(ctx)
	require.NoError(t, err)
	return inv
}

func TestCalculateLateFee(t *testing.T) {
	ctx := context.Background()
	created := day(2024, time.June, 3)
	due := day(2024, time.June, 10)

	tests := []struct {
		name    string
		feeType domain.LateFeeType
		rate    float64
		grace   int
		paid    float64
		today   time.Time
		want    float64
	}{
		{"flat fee", domain.LateFeeFlat, 80, 0, 0, day(2024, time.June, 15), 80},
		{"percentage of outstanding", domain.LateFeePercentage, 5, 0, 0, day(2024, time.June, 15), 50},
		{"percentage ignores what was already paid", domain.LateFeePercentage, 10, 0, 200, day(2024, time.June, 19), 80},
		{"daily percentage accrues", domain.LateFeeDailyPercentage, 0.5, 0, 0, day(2024, time.June, 15), 25},
		{"daily percentage charges on the face value", domain.LateFeeDailyPercentage, 1, 0, 200, day(2024, time.June, 15), 50},
		{"within grace period", domain.LateFeePercentage, 5, 7, 0, day(2024, time.June, 15), 0},
		{"past grace period", domain.LateFeePercentage, 5, 3, 0, day(2024, time.June, 15), 50},
		{"not yet overdue", domain.LateFeePercentage, 5, 0, 0, day(2024, time.June, 10), 0},
		{"no policy", domain.LateFeeNone, 0, 0, 0, day(2024, time.June, 15), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, created)
			later := f.at(tt.today)
			inv := overdueInvoice(t, f, later, 1000, tt.feeType, tt.rate, tt.grace, due)

			if tt.paid > 0 {
				_, err := later.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
					InvoiceID: inv.ID, Amount: tt.paid, Method: "bank_transfer",
				})
				require.NoError(t, err)
			}

			fee, err := later.LateFees.CalculateLateFee(ctx, inv.ID)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, fee, 0.001)
		})
	}
}

func TestApplyLateFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))
	later := f.at(day(2024, time.June, 15))

	inv := overdueInvoice(t, f, later, 1000, domain.LateFeePercentage, 5, 0, day(2024, time.June, 10))

	got, err := later.LateFees.ApplyLateFee(ctx, inv.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got.LateFeeAmount, 0.001)
	assert.InDelta(t, 1050.0, got.AmountTotal, 0.001)
	require.NotNil(t, got.LateFeeAppliedAt)

	// A second application is rejected, not compounded.
	_, err = later.LateFees.ApplyLateFee(ctx, inv.ID)
	assert.True(t, domain.IsCode(err, domain.EAPPLIED))

	got, err = later.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, got.AmountTotal, 0.001)

	// Paying the inflated total settles the invoice.
	paid, err := later.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
		InvoiceID: inv.ID, Amount: 1050, Method: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
}

func TestApplyLateFeeNothingDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))
	later := f.at(day(2024, time.June, 12))

	// Grace of 5 days; only 2 days overdue.
	inv := overdueInvoice(t, f, later, 1000, domain.LateFeePercentage, 5, 5, day(2024, time.June, 10))

	_, err := later.LateFees.ApplyLateFee(ctx, inv.ID)
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestProcessLateFees(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))
	later := f.at(day(2024, time.June, 20))

	due := day(2024, time.June, 10)
	withFee := overdueInvoice(t, f, later, 1000, domain.LateFeeFlat, 25, 0, due)
	noPolicy := overdueInvoice(t, f, later, 500, domain.LateFeeNone, 0, 0, due)
	inGrace := overdueInvoice(t, f, later, 500, domain.LateFeeFlat, 25, 30, due)

	result, err := later.LateFees.ProcessLateFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Failed)

	got, err := later.Invoices.Get(ctx, withFee.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1025.0, got.AmountTotal, 0.001)

	for _, id := range []int64{noPolicy.ID, inGrace.ID} {
		got, err := later.Invoices.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.LateFeeAppliedAt)
	}

	// Sweeping again finds nothing to do.
	result, err = later.LateFees.ProcessLateFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}
