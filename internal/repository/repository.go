// Package repository abstracts persistence of invoices, credits, payment
// history, reminders, recurring rules, scheduled invoices and payment terms
// presets. Services depend on Store; the postgres implementation backs
// production and the memory implementation backs tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/openclerk/backoffice/internal/domain"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

// Store is the persistence contract consumed by the billing engine.
//
// WithTx runs fn against a transaction-bound Store; the payment and credit
// paths use it together with the ForUpdate reads so concurrent mutations of
// the same invoice serialize instead of racing a stale amountPaid.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	// Invoices
	CreateInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	GetInvoiceByProviderID(ctx context.Context, providerInvoiceID string) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *domain.Invoice) error
	DeleteInvoice(ctx context.Context, id int64) error
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)

	// NextInvoiceSequence atomically increments and returns the per-prefix,
	// per-month counter used for invoice numbering.
	NextInvoiceSequence(ctx context.Context, prefix, yearMonth string) (int64, error)

	// Payment history
	CreatePaymentRecord(ctx context.Context, rec *domain.PaymentRecord) error
	ListPayments(ctx context.Context, invoiceID int64) ([]domain.PaymentRecord, error)

	// Deposit credit ledger
	CreateCredit(ctx context.Context, credit *domain.InvoiceCredit) error
	ListCreditsForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceCredit, error)
	SumCreditsForDeposit(ctx context.Context, depositInvoiceID int64) (float64, error)
	DeleteCreditsForInvoice(ctx context.Context, invoiceID int64) error

	// Reminders
	CreateReminders(ctx context.Context, reminders []domain.InvoiceReminder) ([]domain.InvoiceReminder, error)
	ListRemindersForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error)
	ListDueReminders(ctx context.Context, asOf time.Time) ([]domain.DueReminder, error)
	GetReminder(ctx context.Context, id int64) (*domain.InvoiceReminder, error)
	UpdateReminderStatus(ctx context.Context, id int64, status domain.ReminderStatus) error
	SkipPendingReminders(ctx context.Context, invoiceID int64) error
	DeleteRemindersForInvoice(ctx context.Context, invoiceID int64) error

	// Recurring rules
	CreateRecurringRule(ctx context.Context, rule *domain.RecurringRule) error
	GetRecurringRule(ctx context.Context, id int64) (*domain.RecurringRule, error)
	UpdateRecurringRule(ctx context.Context, rule *domain.RecurringRule) error
	ListRecurringRules(ctx context.Context, projectID int64) ([]domain.RecurringRule, error)
	ListDueRecurringRules(ctx context.Context, asOf time.Time) ([]domain.RecurringRule, error)

	// Scheduled invoices
	CreateScheduledInvoice(ctx context.Context, sched *domain.ScheduledInvoice) error
	GetScheduledInvoice(ctx context.Context, id int64) (*domain.ScheduledInvoice, error)
	UpdateScheduledInvoice(ctx context.Context, sched *domain.ScheduledInvoice) error
	ListDueScheduledInvoices(ctx context.Context, asOf time.Time) ([]domain.ScheduledInvoice, error)

	// Payment terms presets
	CreatePreset(ctx context.Context, preset *domain.PaymentTermsPreset) error
	GetPreset(ctx context.Context, id int64) (*domain.PaymentTermsPreset, error)
	GetDefaultPreset(ctx context.Context) (*domain.PaymentTermsPreset, error)
	ListPresets(ctx context.Context) ([]domain.PaymentTermsPreset, error)
}
