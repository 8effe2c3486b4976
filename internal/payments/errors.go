package payments

import "errors"

var (
	// ErrInvalidAPIKey is returned when the provider API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("payments: invalid or missing API key")

	// ErrInvoiceNotFound is returned when the provider has no such invoice.
	ErrInvoiceNotFound = errors.New("payments: invoice not found")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("payments: invalid webhook signature")
)
