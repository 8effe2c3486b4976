// Package service implements the billing engine's business operations on top
// of the repository layer. Every write to invoice status or amountPaid goes
// through this package.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/money"
	"github.com/openclerk/backoffice/internal/payments"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/telemetry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateParams runs struct validation and wraps the first failure as a
// domain validation error.
func validateParams(op string, params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Invalid(op, fmt.Sprintf("field %s failed validation on %s", fe.Field(), fe.Tag()))
	}
	return domain.Invalid(op, err.Error())
}

// Options carries the tunable behavior shared across services.
type Options struct {
	// PaidTolerance is the residual balance treated as fully paid, absorbing
	// float rounding drift. Defaults to 0.01.
	PaidTolerance float64

	// DefaultDueDays is the issue-to-due offset used when neither a due date
	// nor a preset supplies one. Defaults to 30.
	DefaultDueDays int

	// Profile supplies business/contact/payment-method fallbacks for
	// invoices that do not override them.
	Profile domain.BusinessProfile
}

func (o Options) withDefaults() Options {
	if o.PaidTolerance <= 0 {
		o.PaidTolerance = 0.01
	}
	if o.DefaultDueDays <= 0 {
		o.DefaultDueDays = 30
	}
	if o.Profile.CurrencyCode == "" {
		o.Profile.CurrencyCode = "USD"
	}
	if o.Profile.InvoicePrefix == "" {
		o.Profile.InvoicePrefix = "INV"
	}
	return o
}

// Services bundles every service implementation over one store.
type Services struct {
	Invoices     domain.InvoiceService
	Credits      domain.CreditService
	LateFees     domain.LateFeeService
	Reminders    domain.ReminderService
	Generator    domain.GeneratorService
	PaymentTerms domain.PaymentTermsService
	Aging        domain.AgingService
}

// New wires all services. provider and metrics may be nil for deployments
// without a payment provider or a metrics registry.
func New(
	store repository.Store,
	clk clock.Clock,
	logger zerolog.Logger,
	provider payments.Provider,
	metrics *telemetry.BusinessMetrics,
	opts Options,
) *Services {
	opts = opts.withDefaults()

	terms := NewPaymentTermsService(store, clk, logger)
	reminders := NewReminderService(store, clk, logger)
	invoices := NewInvoiceService(store, terms, reminders, provider, clk, logger, metrics, opts)

	return &Services{
		Invoices:     invoices,
		Credits:      NewCreditService(store, clk, logger, metrics, opts),
		LateFees:     NewLateFeeService(store, clk, logger, metrics),
		Reminders:    reminders,
		Generator:    NewGeneratorService(store, invoices, clk, logger, metrics),
		PaymentTerms: terms,
		Aging:        NewAgingService(store, clk),
	}
}

// applyPayment folds amount into the invoice and derives the resulting
// status. Reaching fully paid (within tolerance) stamps paidDate exactly
// once. Shared by the payment, credit and provider-sync paths so the
// amountPaid/status pairing has a single writer.
func applyPayment(inv *domain.Invoice, amount float64, now time.Time, tolerance float64) {
	inv.AmountPaid = money.Round2(inv.AmountPaid + amount)

	if money.WithinTolerance(inv.Outstanding(), tolerance) {
		inv.Status = domain.StatusPaid
		if inv.PaidDate == nil {
			paid := now
			inv.PaidDate = &paid
		}
		return
	}
	inv.Status = domain.StatusPartial
}

// storeErr maps repository sentinel errors onto domain errors.
func storeErr(err error, op, resource string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(op, resource, id)
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	return domain.Internal(err, op, "storage failure")
}
