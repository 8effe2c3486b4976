package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/domain"
)

func TestScheduleReminders(t *testing.T) {
	ctx := context.Background()
	now := day(2024, time.June, 3)

	t.Run("full timetable around the due date", func(t *testing.T) {
		f := newFixture(t, now)
		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
			DueDate: ptr(day(2024, time.June, 20)),
		})
		require.NoError(t, err)

		reminders, err := f.svc.Reminders.ScheduleReminders(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, reminders, 6)

		byType := map[domain.ReminderType]time.Time{}
		for _, r := range reminders {
			byType[r.Type] = r.ScheduledDate
			assert.Equal(t, domain.ReminderPending, r.Status)
		}
		assert.Equal(t, day(2024, time.June, 17), byType[domain.ReminderUpcoming])
		assert.Equal(t, day(2024, time.June, 20), byType[domain.ReminderDue])
		assert.Equal(t, day(2024, time.June, 23), byType[domain.ReminderOverdue3])
		assert.Equal(t, day(2024, time.June, 27), byType[domain.ReminderOverdue7])
		assert.Equal(t, day(2024, time.July, 4), byType[domain.ReminderOverdue14])
		assert.Equal(t, day(2024, time.July, 20), byType[domain.ReminderOverdue30])
	})

	t.Run("past steps are dropped at creation", func(t *testing.T) {
		f := newFixture(t, now)
		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
			DueDate: ptr(day(2024, time.June, 4)),
		})
		require.NoError(t, err)

		reminders, err := f.svc.Reminders.ScheduleReminders(ctx, inv.ID)
		require.NoError(t, err)
		// upcoming (due-3 = June 1) is already past; the rest survive.
		require.Len(t, reminders, 5)
		for _, r := range reminders {
			assert.NotEqual(t, domain.ReminderUpcoming, r.Type)
		}
	})

	t.Run("idempotent per invoice", func(t *testing.T) {
		f := newFixture(t, now)
		inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
			ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
		})
		require.NoError(t, err)

		first, err := f.svc.Reminders.ScheduleReminders(ctx, inv.ID)
		require.NoError(t, err)
		second, err := f.svc.Reminders.ScheduleReminders(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, len(first), len(second))

		all, err := f.svc.Reminders.RemindersForInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Len(t, all, len(first))
	})
}

func TestProcessReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
		DueDate: ptr(day(2024, time.June, 10)),
	})
	require.NoError(t, err)
	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)

	// Nothing due yet.
	due, err := f.svc.Reminders.ProcessReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	// On the due date both the upcoming and due steps have matured.
	onDue := f.at(day(2024, time.June, 10))
	due, err = onDue.Reminders.ProcessReminders(ctx)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, inv.ID, due[0].Invoice.ID)

	// Acknowledge them and the queue drains.
	require.NoError(t, onDue.Reminders.MarkReminderSent(ctx, due[0].Reminder.ID))
	require.NoError(t, onDue.Reminders.MarkReminderFailed(ctx, due[1].Reminder.ID))

	due, err = onDue.Reminders.ProcessReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	// A sent reminder cannot be re-acknowledged.
	reminders, err := onDue.Reminders.RemindersForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	err = onDue.Reminders.MarkReminderSent(ctx, reminders[0].ID)
	assert.True(t, domain.IsCode(err, domain.ESTATE))
}

func TestProcessRemindersSkipsSettledInvoices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	inv, err := f.svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: 1, ClientID: 2, LineItems: singleItem(100),
		DueDate: ptr(day(2024, time.June, 10)),
	})
	require.NoError(t, err)
	_, err = f.svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)
	_, err = f.svc.Invoices.RecordPayment(ctx, domain.RecordPaymentParams{
		InvoiceID: inv.ID, Amount: 100, Method: "card",
	})
	require.NoError(t, err)

	later := f.at(day(2024, time.June, 10))
	due, err := later.Reminders.ProcessReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)
}
