package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dates"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/repository"
)

// reminderOffsets is the fixed timetable, in days relative to the due date.
var reminderOffsets = []struct {
	Type domain.ReminderType
	Days int
}{
	{domain.ReminderUpcoming, -3},
	{domain.ReminderDue, 0},
	{domain.ReminderOverdue3, 3},
	{domain.ReminderOverdue7, 7},
	{domain.ReminderOverdue14, 14},
	{domain.ReminderOverdue30, 30},
}

type reminderService struct {
	store  repository.Store
	clock  clock.Clock
	logger zerolog.Logger
}

// NewReminderService creates the reminder scheduler.
func NewReminderService(store repository.Store, clk clock.Clock, logger zerolog.Logger) domain.ReminderService {
	return &reminderService{
		store:  store,
		clock:  clk,
		logger: logger.With().Str("service", "reminder").Logger(),
	}
}

func (s *reminderService) ScheduleReminders(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error) {
	const op = "reminder.schedule"

	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, storeErr(err, op, "invoice", invoiceID)
	}
	if inv.DueDate == nil {
		return nil, domain.Invalid(op, "cannot schedule reminders without a due date")
	}

	// Re-sending an invoice must not double its timetable.
	existing, err := s.store.ListRemindersForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reminders")
	}
	if len(existing) > 0 {
		return existing, nil
	}

	today := dates.Truncate(s.clock.Now())
	due := dates.Truncate(*inv.DueDate)

	var pending []domain.InvoiceReminder
	for _, step := range reminderOffsets {
		scheduled := due.AddDate(0, 0, step.Days)
		// Steps already in the past are dropped at creation, not stored as
		// instantly-due noise.
		if scheduled.Before(today) {
			continue
		}
		pending = append(pending, domain.InvoiceReminder{
			InvoiceID:     invoiceID,
			Type:          step.Type,
			ScheduledDate: scheduled,
			Status:        domain.ReminderPending,
		})
	}
	if len(pending) == 0 {
		return nil, nil
	}

	created, err := s.store.CreateReminders(ctx, pending)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create reminders")
	}

	s.logger.Info().
		Int64("invoice_id", invoiceID).
		Int("count", len(created)).
		Msg("reminder timetable scheduled")
	return created, nil
}

func (s *reminderService) RemindersForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error) {
	const op = "reminder.for_invoice"

	out, err := s.store.ListRemindersForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reminders")
	}
	return out, nil
}

func (s *reminderService) ProcessReminders(ctx context.Context) ([]domain.DueReminder, error) {
	const op = "reminder.process"

	due, err := s.store.ListDueReminders(ctx, dates.Truncate(s.clock.Now()))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list due reminders")
	}
	return due, nil
}

func (s *reminderService) MarkReminderSent(ctx context.Context, reminderID int64) error {
	return s.advance(ctx, "reminder.mark_sent", reminderID, domain.ReminderSent)
}

func (s *reminderService) MarkReminderFailed(ctx context.Context, reminderID int64) error {
	return s.advance(ctx, "reminder.mark_failed", reminderID, domain.ReminderFailed)
}

func (s *reminderService) advance(ctx context.Context, op string, reminderID int64, status domain.ReminderStatus) error {
	r, err := s.store.GetReminder(ctx, reminderID)
	if err != nil {
		return storeErr(err, op, "reminder", reminderID)
	}
	if r.Status != domain.ReminderPending {
		return domain.InvalidState(op, "reminder is no longer pending")
	}
	if err := s.store.UpdateReminderStatus(ctx, reminderID, status); err != nil {
		return storeErr(err, op, "reminder", reminderID)
	}
	return nil
}
