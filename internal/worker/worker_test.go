package worker

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dispatch"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/service"
	"github.com/openclerk/backoffice/internal/telemetry"
)

func newServices(store *repository.Memory, now time.Time) (*service.Services, *telemetry.BusinessMetrics) {
	metrics := telemetry.NewBusinessMetricsWith(prometheus.NewRegistry(), "test")
	svc := service.New(store, clock.Fixed(now), zerolog.Nop(), nil, metrics, service.Options{
		Profile: domain.BusinessProfile{
			BusinessName:  "Acme Studio",
			CurrencyCode:  "USD",
			InvoicePrefix: "INV",
		},
	})
	return svc, metrics
}

// RunOnce must mark invoices overdue before the late fee sweep runs, so a
// single cycle both flips the status and applies the fee.
func TestRunOnceOrdersSweeps(t *testing.T) {
	store := repository.NewMemory()
	ctx := t.Context()

	created := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	svc, _ := newServices(store, created)

	due := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	inv, err := svc.Invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID:   1,
		ClientID:    2,
		DueDate:     &due,
		LateFeeType: domain.LateFeeFlat,
		LateFeeRate: 50,
		LineItems: []domain.LineItem{
			{Description: "development", Quantity: 1, Rate: 1000, Amount: 1000},
		},
	})
	require.NoError(t, err)
	_, err = svc.Invoices.Send(ctx, inv.ID)
	require.NoError(t, err)

	// Advance a month: past due and past any grace period.
	later := time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC)
	svc, metrics := newServices(store, later)

	mock := dispatch.NewMockDispatcher()
	runner := dispatch.NewRunner(svc.Reminders, mock, zerolog.Nop(), nil)
	w := NewWorker(svc, runner, Config{Interval: time.Hour}, zerolog.Nop(), metrics)
	w.RunOnce(ctx)

	got, err := svc.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, got.Status)
	require.NotNil(t, got.LateFeeAppliedAt)
	assert.InDelta(t, 1050.0, got.AmountTotal, 0.001)

	// The overdue reminders that matured by July 10 were dispatched.
	assert.NotEmpty(t, mock.Dispatched)

	// Second cycle is idempotent: no double fee, no re-dispatch.
	before := len(mock.Dispatched)
	w.RunOnce(ctx)
	again, err := svc.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, again.AmountTotal, 0.001)
	assert.Len(t, mock.Dispatched, before)
}

func TestRunOnceWithoutRunner(t *testing.T) {
	store := repository.NewMemory()
	svc, metrics := newServices(store, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))

	w := NewWorker(svc, nil, Config{}, zerolog.Nop(), metrics)
	// Must not panic with no dispatcher configured.
	w.RunOnce(t.Context())
}
