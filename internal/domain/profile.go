package domain

// BusinessProfile carries the static business/contact/payment-method strings
// used as fallback values when invoice-level overrides are absent. It is
// read-only configuration as far as this engine is concerned.
type BusinessProfile struct {
	BusinessName        string
	BusinessEmail       string
	PaymentInstructions string
	CurrencyCode        string
	InvoicePrefix       string
}
