package payments

import (
	"context"
	"fmt"
)

// MockProvider is a mock payment provider for testing. It returns invoices
// from its in-memory map unless a Func override is set.
type MockProvider struct {
	// GetInvoiceFunc allows customizing invoice retrieval behavior
	GetInvoiceFunc func(ctx context.Context, providerInvoiceID string) (*ProviderInvoice, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	// Invoices stores provider invoices for retrieval
	Invoices map[string]*ProviderInvoice

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock payment provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Invoices: make(map[string]*ProviderInvoice),
		CallLog:  []string{},
	}
}

// GetInvoice retrieves a stored mock invoice.
func (m *MockProvider) GetInvoice(ctx context.Context, providerInvoiceID string) (*ProviderInvoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetInvoice(%s)", providerInvoiceID))

	if m.GetInvoiceFunc != nil {
		return m.GetInvoiceFunc(ctx, providerInvoiceID)
	}

	inv, ok := m.Invoices[providerInvoiceID]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

// VerifyWebhookSignature accepts every signature unless overridden.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}
	return nil
}
