package domain

import (
	"context"
	"time"
)

// ReminderType identifies a reminder's position in the timetable relative to
// the invoice due date.
type ReminderType string

const (
	ReminderUpcoming  ReminderType = "upcoming"    // 3 days before due
	ReminderDue       ReminderType = "due"         // on the due date
	ReminderOverdue3  ReminderType = "overdue_3"   // 3 days past due
	ReminderOverdue7  ReminderType = "overdue_7"   // 7 days past due
	ReminderOverdue14 ReminderType = "overdue_14"  // 14 days past due
	ReminderOverdue30 ReminderType = "overdue_30"  // 30 days past due
)

// ReminderStatus advances pending -> sent/skipped/failed; reminders are
// never rescheduled.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderSkipped ReminderStatus = "skipped"
	ReminderFailed  ReminderStatus = "failed"
)

// InvoiceReminder is one row of an invoice's reminder timetable, created in
// bulk when the invoice is sent.
type InvoiceReminder struct {
	ID            int64
	InvoiceID     int64
	Type          ReminderType
	ScheduledDate time.Time
	Status        ReminderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DueReminder pairs a due reminder with its invoice so the dispatcher can
// render a notification without a second lookup.
type DueReminder struct {
	Reminder InvoiceReminder
	Invoice  Invoice
}

// ReminderService derives and advances invoice reminder timetables. Actual
// delivery is an external dispatcher's job; it calls back MarkSent/MarkFailed.
type ReminderService interface {
	// ScheduleReminders derives the six-step timetable from the invoice's
	// due date. Dates strictly in the past are skipped at creation time and
	// never stored. Requires a due date.
	ScheduleReminders(ctx context.Context, invoiceID int64) ([]InvoiceReminder, error)

	// RemindersForInvoice returns an invoice's timetable.
	RemindersForInvoice(ctx context.Context, invoiceID int64) ([]InvoiceReminder, error)

	// ProcessReminders returns all pending reminders due today or earlier on
	// invoices that are not paid or cancelled, for handing to the dispatcher.
	ProcessReminders(ctx context.Context) ([]DueReminder, error)

	// MarkReminderSent advances a reminder to sent.
	MarkReminderSent(ctx context.Context, reminderID int64) error

	// MarkReminderFailed advances a reminder to failed.
	MarkReminderFailed(ctx context.Context, reminderID int64) error
}
