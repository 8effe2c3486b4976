package domain

import "context"

// AgingBucket labels for the five fixed days-overdue ranges.
const (
	BucketCurrent  = "current"
	Bucket1To30    = "1-30"
	Bucket31To60   = "31-60"
	Bucket61To90   = "61-90"
	BucketOver90   = "90+"
)

// AgingBucket aggregates the outstanding invoices in one days-overdue range.
type AgingBucket struct {
	Label       string
	Count       int
	TotalAmount float64
	Invoices    []Invoice
}

// AgingReport buckets all outstanding invoices by days overdue for
// receivables reporting. Invoices without a due date count as current.
type AgingReport struct {
	Buckets          []AgingBucket
	TotalOutstanding float64
}

// AgingService produces receivables aging reports.
type AgingService interface {
	// GetAgingReport buckets outstanding sent/viewed/partial/overdue
	// invoices by days overdue. clientID of 0 means all clients.
	GetAgingReport(ctx context.Context, clientID int64) (*AgingReport, error)
}
