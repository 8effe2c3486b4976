package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/payments"
)

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()
	now := day(2024, time.June, 3)

	t.Run("assigns number, totals and defaults", func(t *testing.T) {
		f := newFixture(t, now)

		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1,
			ClientID:  2,
			LineItems: []domain.LineItem{
				{Description: "design", Quantity: 10, Rate: 75},
				{Description: "hosting", Quantity: 1, Rate: 50, Amount: 50},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "INV-202406-0001", inv.Number)
		assert.Equal(t, domain.StatusDraft, inv.Status)
		assert.Equal(t, domain.InvoiceTypeStandard, inv.Type)
		assert.Equal(t, "USD", inv.Currency)
		assert.Equal(t, "Acme Studio", inv.BusinessName)
		assert.InDelta(t, 800.0, inv.Subtotal, 0.001)
		assert.InDelta(t, 800.0, inv.AmountTotal, 0.001)
		require.NotNil(t, inv.DueDate)
		assert.Equal(t, day(2024, time.July, 3), *inv.DueDate)

		second, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
		})
		require.NoError(t, err)
		assert.Equal(t, "INV-202406-0002", second.Number)
	})

	t.Run("applies tax after discount", func(t *testing.T) {
		f := newFixture(t, now)

		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID:     1,
			ClientID:      2,
			LineItems:     singleItem(1000),
			TaxRate:       8,
			DiscountType:  domain.DiscountPercentage,
			DiscountValue: 10,
		})
		require.NoError(t, err)

		assert.InDelta(t, 1000.0, inv.Subtotal, 0.001)
		assert.InDelta(t, 100.0, inv.DiscountAmount, 0.001)
		assert.InDelta(t, 72.0, inv.TaxAmount, 0.001)
		assert.InDelta(t, 972.0, inv.AmountTotal, 0.001)
	})

	t.Run("stamps preset snapshot", func(t *testing.T) {
		f := newFixture(t, now)

		preset, err := f.svc.PaymentTerms.CreatePreset(ctx, domain.CreatePresetParams{
			Name:            "net 14",
			DaysUntilDue:    14,
			LateFeeType:     domain.LateFeePercentage,
			LateFeeRate:     5,
			GracePeriodDays: 3,
		})
		require.NoError(t, err)

		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(500), PresetID: &preset.ID,
		})
		require.NoError(t, err)

		require.NotNil(t, inv.DueDate)
		assert.Equal(t, day(2024, time.June, 17), *inv.DueDate)
		assert.Equal(t, domain.LateFeePercentage, inv.LateFeeType)
		assert.InDelta(t, 5.0, inv.LateFeeRate, 0.001)
		assert.Equal(t, 3, inv.GracePeriodDays)

		// Editing the preset afterwards leaves the invoice untouched.
		_, err = f.svc.PaymentTerms.GetPreset(ctx, preset.ID)
		require.NoError(t, err)
		got, err := f.svc.Invoices.Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.GracePeriodDays)
	})

	t.Run("rejects deposit without project reference", func(t *testing.T) {
		f := newFixture(t, now)

		_, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, Type: domain.InvoiceTypeDeposit, LineItems: singleItem(100),
		})
		assert.True(t, domain.IsCode(err, domain.EINVALID))
	})

	t.Run("rejects empty line items", func(t *testing.T) {
		f := newFixture(t, now)

		_, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{ProjectID: 1, ClientID: 2})
		assert.True(t, domain.IsCode(err, domain.EINVALID))
	})
}

func TestUpdateInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
	})
	require.NoError(t, err)

	t.Run("recomputes totals on patch", func(t *testing.T) {
		updated, err := f.svc.Invoices.Update(ctx, inv.ID, domain.UpdateInvoiceParams{
			LineItems: ptr(singleItem(250)),
			TaxRate:   ptr(10.0),
		})
		require.NoError(t, err)
		assert.InDelta(t, 250.0, updated.Subtotal, 0.001)
		assert.InDelta(t, 275.0, updated.AmountTotal, 0.001)
	})

	t.Run("rejects edits after send", func(t *testing.T) {
		_, err := f.svc.Invoices.Send(ctx, inv.ID)
		require.NoError(t, err)

		_, err = f.svc.Invoices.Update(ctx, inv.ID, domain.UpdateInvoiceParams{Notes: ptr("late edit")})
		assert.True(t, domain.IsCode(err, domain.ESTATE))
	})
}

func TestSendAndMarkViewed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
	})
	require.NoError(t, err)

	sent, err := f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)

	reminders, err := f.svc.Reminders.RemindersForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, reminders, 6)

	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	assert.True(t, domain.IsCode(err, domain.ESTATE), "double send rejected")

	viewed, err := f.svc.Invoices.MarkViewed(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusViewed, viewed.Status)

	// Re-viewing is a no-op, not an error.
	again, err := f.svc.Invoices.MarkViewed(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusViewed, again.Status)
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	now := day(2024, time.June, 3)

	create := func(f *fixture) *domain.Invoice {
		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(1000),
		})
		require.NoError(t, err)
		_, err = f.svc.Invoices.Send(ctx, inv.ID)
		require.NoError(t, err)
		return inv
	}

	t.Run("partial then paid", func(t *testing.T) {
		f := newFixture(t, now)
		inv := create(f)

		got, err := f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 400, Method: "bank_transfer",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPartial, got.Status)
		assert.InDelta(t, 400.0, got.AmountPaid, 0.001)
		assert.Nil(t, got.PaidDate)

		got, err = f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 600, Method: "bank_transfer",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, got.Status)
		require.NotNil(t, got.PaidDate)

		history, err := f.svc.Invoices.Payments(ctx, inv.ID)
		require.NoError(t, err)
		assert.Len(t, history, 2)

		// Reaching paid retires the reminder timetable.
		reminders, err := f.svc.Reminders.RemindersForInvoice(ctx, inv.ID)
		require.NoError(t, err)
		for _, r := range reminders {
			assert.Equal(t, domain.ReminderSkipped, r.Status)
		}
	})

	t.Run("residual within tolerance counts as paid", func(t *testing.T) {
		f := newFixture(t, now)
		inv := create(f)

		got, err := f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 999.995, Method: "card",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, got.Status)
	})

	t.Run("rejects overpayment", func(t *testing.T) {
		f := newFixture(t, now)
		inv := create(f)

		_, err := f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 1200, Method: "card",
		})
		assert.True(t, domain.IsCode(err, domain.EINVALID))
	})

	t.Run("rejects payment on terminal invoice", func(t *testing.T) {
		f := newFixture(t, now)
		inv := create(f)

		_, err := f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 1000, Method: "card",
		})
		require.NoError(t, err)

		_, err = f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 10, Method: "card",
		})
		assert.True(t, domain.IsCode(err, domain.ESTATE))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		f := newFixture(t, now)
		inv := create(f)

		_, err := f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: -5, Method: "card",
		})
		assert.True(t, domain.IsCode(err, domain.EINVALID))
	})
}

func TestCheckAndMarkOverdue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
		DueDate: ptr(day(2024, time.June, 10)),
	})
	require.NoError(t, err)
	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)

	// Not yet due.
	n, err := f.svc.Invoices.CheckAndMarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// On the due date itself the invoice is still current.
	later := f.at(day(2024, time.June, 10))
	n, err = later.Invoices.CheckAndMarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	past := f.at(day(2024, time.June, 11))
	n, err = past.Invoices.CheckAndMarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := past.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, got.Status)

	// The sweep is idempotent.
	n, err = past.Invoices.CheckAndMarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDuplicateInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	src, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(1000),
		IssuedDate: ptr(day(2024, time.May, 1)),
		DueDate:    ptr(day(2024, time.May, 15)),
		Notes:      "original",
	})
	require.NoError(t, err)
	_, err = f.svc.Invoices.Send(ctx, src.ID)
	require.NoError(t, err)
	_, err = f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
		InvoiceID: src.ID, Amount: 1000, Method: "card",
	})
	require.NoError(t, err)

	dup, err := f.svc.Invoices.Duplicate(ctx, src.ID)
	require.NoError(t, err)

	assert.NotEqual(t, src.Number, dup.Number)
	assert.Equal(t, domain.StatusDraft, dup.Status)
	assert.Zero(t, dup.AmountPaid)
	assert.Nil(t, dup.PaidDate)
	assert.Equal(t, src.LineItems, dup.LineItems)
	assert.Equal(t, "original", dup.Notes)
	// The 14-day issue-to-due offset is preserved relative to today.
	require.NotNil(t, dup.DueDate)
	assert.Equal(t, day(2024, time.June, 17), *dup.DueDate)
}

func TestDeleteOrVoid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	create := func() *domain.Invoice {
		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
		})
		require.NoError(t, err)
		return inv
	}

	t.Run("draft is hard deleted", func(t *testing.T) {
		inv := create()
		action, err := f.svc.Invoices.DeleteOrVoid(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionDeleted, action)

		_, err = f.svc.Invoices.Get(ctx, inv.ID)
		assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	})

	t.Run("sent is voided", func(t *testing.T) {
		inv := create()
		_, err := f.svc.Invoices.Send(ctx, inv.ID)
		require.NoError(t, err)

		action, err := f.svc.Invoices.DeleteOrVoid(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionVoided, action)

		got, err := f.svc.Invoices.Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, got.Status)
	})

	t.Run("paid is immutable", func(t *testing.T) {
		inv := create()
		_, err := f.svc.Invoices.Send(ctx, inv.ID)
		require.NoError(t, err)
		_, err = f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: inv.ID, Amount: 100, Method: "card",
		})
		require.NoError(t, err)

		_, err = f.svc.Invoices.DeleteOrVoid(ctx, inv.ID)
		assert.True(t, domain.IsCode(err, domain.ESTATE))
	})
}

func TestSyncFromProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(500),
	})
	require.NoError(t, err)
	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)

	// Link the invoice to the provider record.
	stored, err := f.store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	stored.ProviderInvoiceID = "in_123"
	require.NoError(t, f.store.UpdateInvoice(ctx, stored))

	f.provider.Invoices["in_123"] = &payments.ProviderInvoice{
		ID:         "in_123",
		State:      payments.StatePaid,
		AmountDue:  500,
		AmountPaid: 500,
		Currency:   "usd",
	}

	require.NoError(t, f.svc.Invoices.SyncFromProvider(ctx, "in_123"))

	got, err := f.svc.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.InDelta(t, 500.0, got.AmountPaid, 0.001)

	// Redelivered webhook applies no second payment.
	require.NoError(t, f.svc.Invoices.SyncFromProvider(ctx, "in_123"))
	history, err := f.svc.Invoices.Payments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
