// Package payments abstracts the external payment provider used to mirror
// hosted invoices. Implementations can use Stripe, PayPal, Square, etc.
package payments

import (
	"context"
	"time"
)

// InvoiceState is the provider-side lifecycle of a hosted invoice, reduced to
// the states the engine reacts to.
type InvoiceState string

const (
	StateDraft         InvoiceState = "draft"
	StateOpen          InvoiceState = "open"
	StatePaid          InvoiceState = "paid"
	StateVoid          InvoiceState = "void"
	StateUncollectible InvoiceState = "uncollectible"
)

// ProviderInvoice is the provider's view of an invoice, normalized to major
// currency units.
type ProviderInvoice struct {
	// ID is the provider's invoice identifier (e.g. in_... for Stripe).
	ID string

	// State is the provider-side lifecycle state.
	State InvoiceState

	// AmountDue is the total the provider expects to collect.
	AmountDue float64

	// AmountPaid is what the provider has collected so far.
	AmountPaid float64

	// Currency code (ISO 4217 lowercase).
	Currency string

	// PaidAt is when the provider marked the invoice paid, if it has.
	PaidAt *time.Time

	// HostedURL is the customer-facing payment page, when available.
	HostedURL string
}

// Provider defines the read surface the sync path needs from the payment
// provider.
type Provider interface {
	// GetInvoice retrieves the provider's current view of an invoice.
	GetInvoice(ctx context.Context, providerInvoiceID string) (*ProviderInvoice, error)

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}
