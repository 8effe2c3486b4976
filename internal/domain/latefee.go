package domain

import "context"

// SweepResult summarizes one batch sweep: per-item failures are logged and
// counted, never propagated.
type SweepResult struct {
	Processed int
	Failed    int
}

// LateFeeService computes and idempotently applies late fees.
type LateFeeService interface {
	// CalculateLateFee returns the fee the invoice would incur today.
	// Zero when there is no due date, the invoice is paid or cancelled, the
	// invoice is not yet overdue, or days overdue are within the grace
	// period.
	CalculateLateFee(ctx context.Context, invoiceID int64) (float64, error)

	// ApplyLateFee stamps lateFeeAppliedAt and folds the fee into
	// amountTotal. A second application fails with AlreadyApplied; a
	// non-positive computed fee fails with a validation error.
	ApplyLateFee(ctx context.Context, invoiceID int64) (*Invoice, error)

	// ProcessLateFees sweeps overdue invoices with an unapplied fee policy,
	// isolating per-item failures.
	ProcessLateFees(ctx context.Context) (SweepResult, error)
}
