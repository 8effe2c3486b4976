package domain

import (
	"context"
	"time"
)

// InvoiceCredit is an immutable ledger entry recording that a portion of a
// paid deposit was applied to a target invoice. Entries are never mutated or
// deleted while either invoice exists; they are the audit trail for the
// conservation invariant sum(credits) <= deposit.amountTotal.
type InvoiceCredit struct {
	ID               int64
	InvoiceID        int64
	DepositInvoiceID int64
	Amount           float64
	AppliedAt        time.Time
	AppliedBy        string
}

// DepositAvailability is one paid deposit invoice with unallocated balance.
type DepositAvailability struct {
	Invoice   Invoice
	Applied   float64
	Available float64
}

// ApplyCreditParams contains parameters for applying deposit credit.
type ApplyCreditParams struct {
	InvoiceID        int64   `validate:"required,gt=0"`
	DepositInvoiceID int64   `validate:"required,gt=0"`
	Amount           float64 `validate:"required,gt=0"`
	AppliedBy        string
}

// CreditService is the deposit credit ledger. Applying credit inserts a
// ledger row and pays down the target invoice in one atomic unit of work, so
// two concurrent applications can never double-spend a deposit.
type CreditService interface {
	// ApplyCredit moves amount from a paid deposit invoice onto a standard
	// invoice. The deposit must be type deposit and status paid; the target
	// must not itself be a deposit; amount must not exceed the deposit's
	// unallocated balance.
	ApplyCredit(ctx context.Context, params ApplyCreditParams) (*InvoiceCredit, error)

	// GetAvailableDeposits returns every paid deposit invoice on the project
	// that still has unallocated balance.
	GetAvailableDeposits(ctx context.Context, projectID int64) ([]DepositAvailability, error)

	// CreditsForInvoice returns the ledger entries applied to an invoice.
	CreditsForInvoice(ctx context.Context, invoiceID int64) ([]InvoiceCredit, error)
}
