package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/domain"
)

type stubReminders struct {
	due    []domain.DueReminder
	sent   []int64
	failed []int64
}

func (s *stubReminders) ScheduleReminders(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error) {
	return nil, nil
}

func (s *stubReminders) RemindersForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error) {
	return nil, nil
}

func (s *stubReminders) ProcessReminders(ctx context.Context) ([]domain.DueReminder, error) {
	return s.due, nil
}

func (s *stubReminders) MarkReminderSent(ctx context.Context, reminderID int64) error {
	s.sent = append(s.sent, reminderID)
	return nil
}

func (s *stubReminders) MarkReminderFailed(ctx context.Context, reminderID int64) error {
	s.failed = append(s.failed, reminderID)
	return nil
}

func dueReminder(id, invoiceID int64, typ domain.ReminderType) domain.DueReminder {
	due := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	return domain.DueReminder{
		Reminder: domain.InvoiceReminder{
			ID:            id,
			InvoiceID:     invoiceID,
			Type:          typ,
			ScheduledDate: due,
			Status:        domain.ReminderPending,
		},
		Invoice: domain.Invoice{
			ID:          invoiceID,
			Number:      "INV-202406-0001",
			ClientName:  "Globex",
			ClientEmail: "ap@globex.test",
			Currency:    "USD",
			AmountTotal: 500,
			AmountPaid:  100,
			DueDate:     &due,
		},
	}
}

func TestRunnerDispatchesAndAcknowledges(t *testing.T) {
	reminders := &stubReminders{due: []domain.DueReminder{
		dueReminder(1, 10, domain.ReminderDue),
		dueReminder(2, 11, domain.ReminderOverdue7),
	}}
	mock := NewMockDispatcher()
	runner := NewRunner(reminders, mock, zerolog.Nop(), nil)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []int64{1, 2}, reminders.sent)

	require.Len(t, mock.Dispatched, 2)
	msg := mock.Dispatched[0]
	assert.Equal(t, int64(10), msg.InvoiceID)
	assert.Equal(t, "INV-202406-0001", msg.InvoiceNumber)
	assert.InDelta(t, 400.0, msg.Outstanding, 0.001)
}

func TestRunnerIsolatesFailures(t *testing.T) {
	reminders := &stubReminders{due: []domain.DueReminder{
		dueReminder(1, 10, domain.ReminderDue),
		dueReminder(2, 11, domain.ReminderDue),
	}}
	mock := NewMockDispatcher()
	mock.DispatchFunc = func(ctx context.Context, due domain.DueReminder) error {
		if due.Reminder.ID == 1 {
			return errors.New("broker down")
		}
		return nil
	}
	runner := NewRunner(reminders, mock, zerolog.Nop(), nil)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int64{1}, reminders.failed)
	assert.Equal(t, []int64{2}, reminders.sent)
}

// Compile-time check that the stub matches the service interface used in
// production wiring.
var _ domain.ReminderService = (*stubReminders)(nil)
