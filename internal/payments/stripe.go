package payments

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using Stripe hosted invoices.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe payment provider.
func NewStripeProvider(apiKey, webhookSecret string) (*StripeProvider, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	api := &client.API{}
	api.Init(apiKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: webhookSecret,
	}, nil
}

// GetInvoice retrieves the Stripe invoice and normalizes it. Stripe amounts
// arrive in the smallest currency unit.
func (s *StripeProvider) GetInvoice(ctx context.Context, providerInvoiceID string) (*ProviderInvoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx

	inv, err := s.api.Invoices.Get(providerInvoiceID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	out := &ProviderInvoice{
		ID:         inv.ID,
		State:      mapStripeStatus(inv.Status),
		AmountDue:  float64(inv.AmountDue) / 100,
		AmountPaid: float64(inv.AmountPaid) / 100,
		Currency:   string(inv.Currency),
		HostedURL:  inv.HostedInvoiceURL,
	}
	if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
		paidAt := time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
		out.PaidAt = &paidAt
	}
	return out, nil
}

func mapStripeStatus(status stripe.InvoiceStatus) InvoiceState {
	switch status {
	case stripe.InvoiceStatusDraft:
		return StateDraft
	case stripe.InvoiceStatusOpen:
		return StateOpen
	case stripe.InvoiceStatusPaid:
		return StatePaid
	case stripe.InvoiceStatusVoid:
		return StateVoid
	case stripe.InvoiceStatusUncollectible:
		return StateUncollectible
	}
	return StateOpen
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if secret == "" {
		secret = s.webhookSecret
	}
	if _, err := webhook.ConstructEvent(payload, signature, secret); err != nil {
		return ErrInvalidWebhookSignature
	}
	return nil
}
