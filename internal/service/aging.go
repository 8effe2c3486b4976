package service

import (
	"context"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dates"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/money"
	"github.com/openclerk/backoffice/internal/repository"
)

type agingService struct {
	store repository.Store
	clock clock.Clock
}

// NewAgingService creates the receivables aging reporter.
func NewAgingService(store repository.Store, clk clock.Clock) domain.AgingService {
	return &agingService{store: store, clock: clk}
}

func (s *agingService) GetAgingReport(ctx context.Context, clientID int64) (*domain.AgingReport, error) {
	const op = "aging.report"

	filter := domain.InvoiceFilter{
		Statuses: []domain.InvoiceStatus{
			domain.StatusSent, domain.StatusViewed, domain.StatusPartial, domain.StatusOverdue,
		},
		Outstanding: true,
	}
	if clientID > 0 {
		filter.ClientID = &clientID
	}

	invoices, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list outstanding invoices")
	}

	report := &domain.AgingReport{
		Buckets: []domain.AgingBucket{
			{Label: domain.BucketCurrent},
			{Label: domain.Bucket1To30},
			{Label: domain.Bucket31To60},
			{Label: domain.Bucket61To90},
			{Label: domain.BucketOver90},
		},
	}

	today := dates.Truncate(s.clock.Now())
	for _, inv := range invoices {
		outstanding := money.Round2(inv.Outstanding())
		if outstanding <= 0 {
			continue
		}

		// No due date means the clock has not started; count as current.
		overdueDays := 0
		if inv.DueDate != nil {
			overdueDays = dates.DaysOverdue(*inv.DueDate, today)
		}

		idx := 0
		switch {
		case overdueDays <= 0:
			idx = 0
		case overdueDays <= 30:
			idx = 1
		case overdueDays <= 60:
			idx = 2
		case overdueDays <= 90:
			idx = 3
		default:
			idx = 4
		}

		bucket := &report.Buckets[idx]
		bucket.Count++
		bucket.TotalAmount = money.Round2(bucket.TotalAmount + outstanding)
		bucket.Invoices = append(bucket.Invoices, inv)

		report.TotalOutstanding = money.Round2(report.TotalOutstanding + outstanding)
	}

	return report, nil
}
