// Package dispatch delivers matured invoice reminders to the outside world.
// The engine decides WHEN a reminder is due; a Dispatcher decides WHERE the
// notification goes (message bus, email worker, test buffer).
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/telemetry"
)

// ReminderMessage is the wire format handed to downstream notifiers.
type ReminderMessage struct {
	ReminderID    int64               `json:"reminder_id"`
	ReminderType  domain.ReminderType `json:"reminder_type"`
	ScheduledDate time.Time           `json:"scheduled_date"`

	InvoiceID     int64   `json:"invoice_id"`
	InvoiceNumber string  `json:"invoice_number"`
	ClientName    string  `json:"client_name"`
	ClientEmail   string  `json:"client_email"`
	Currency      string  `json:"currency"`
	AmountTotal   float64 `json:"amount_total"`
	Outstanding   float64 `json:"outstanding"`

	DueDate *time.Time `json:"due_date,omitempty"`
}

// Dispatcher delivers one reminder notification.
type Dispatcher interface {
	DispatchReminder(ctx context.Context, due domain.DueReminder) error
}

// Runner drains the matured reminder queue through a Dispatcher, advancing
// each reminder to sent or failed. Per-item failures never abort the batch.
type Runner struct {
	reminders  domain.ReminderService
	dispatcher Dispatcher
	logger     zerolog.Logger
	metrics    *telemetry.BusinessMetrics
}

// NewRunner creates a reminder dispatch runner.
func NewRunner(reminders domain.ReminderService, dispatcher Dispatcher, logger zerolog.Logger, metrics *telemetry.BusinessMetrics) *Runner {
	return &Runner{
		reminders:  reminders,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "reminder_dispatch").Logger(),
		metrics:    metrics,
	}
}

// Run processes every matured reminder once.
func (r *Runner) Run(ctx context.Context) (domain.SweepResult, error) {
	due, err := r.reminders.ProcessReminders(ctx)
	if err != nil {
		return domain.SweepResult{}, err
	}

	var result domain.SweepResult
	for _, d := range due {
		if err := r.dispatcher.DispatchReminder(ctx, d); err != nil {
			result.Failed++
			r.logger.Error().Err(err).
				Int64("reminder_id", d.Reminder.ID).
				Int64("invoice_id", d.Invoice.ID).
				Msg("reminder dispatch failed")
			if markErr := r.reminders.MarkReminderFailed(ctx, d.Reminder.ID); markErr != nil {
				r.logger.Error().Err(markErr).Int64("reminder_id", d.Reminder.ID).Msg("failed to mark reminder failed")
			}
			if r.metrics != nil {
				r.metrics.RemindersFailed.Inc()
			}
			continue
		}

		if err := r.reminders.MarkReminderSent(ctx, d.Reminder.ID); err != nil {
			result.Failed++
			r.logger.Error().Err(err).Int64("reminder_id", d.Reminder.ID).Msg("failed to mark reminder sent")
			continue
		}
		result.Processed++
		if r.metrics != nil {
			r.metrics.RemindersSent.WithLabelValues(string(d.Reminder.Type)).Inc()
		}
	}
	return result, nil
}

// newMessage flattens a due reminder into the wire format.
func newMessage(d domain.DueReminder) ReminderMessage {
	return ReminderMessage{
		ReminderID:    d.Reminder.ID,
		ReminderType:  d.Reminder.Type,
		ScheduledDate: d.Reminder.ScheduledDate,
		InvoiceID:     d.Invoice.ID,
		InvoiceNumber: d.Invoice.Number,
		ClientName:    d.Invoice.ClientName,
		ClientEmail:   d.Invoice.ClientEmail,
		Currency:      d.Invoice.Currency,
		AmountTotal:   d.Invoice.AmountTotal,
		Outstanding:   d.Invoice.Outstanding(),
		DueDate:       d.Invoice.DueDate,
	}
}
