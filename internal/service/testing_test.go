package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/payments"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/telemetry"
)

var testProfile = domain.BusinessProfile{
	BusinessName:        "Acme Studio",
	BusinessEmail:       "billing@acme.test",
	PaymentInstructions: "Wire to account 123",
	CurrencyCode:        "USD",
	InvoicePrefix:       "INV",
}

type fixture struct {
	t        *testing.T
	store    *repository.Memory
	provider *payments.MockProvider
	svc      *Services
}

// newFixture wires the full service stack over a memory store with the clock
// pinned to now.
func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := repository.NewMemory()
	provider := payments.NewMockProvider()
	return &fixture{
		t:        t,
		store:    store,
		provider: provider,
		svc:      buildServices(store, provider, now),
	}
}

// at rebuilds the services over the same store with the clock moved to now.
func (f *fixture) at(now time.Time) *Services {
	f.t.Helper()
	return buildServices(f.store, f.provider, now)
}

func buildServices(store *repository.Memory, provider *payments.MockProvider, now time.Time) *Services {
	metrics := telemetry.NewBusinessMetricsWith(prometheus.NewRegistry(), "test")
	return New(store, clock.Fixed(now), zerolog.Nop(), provider, metrics, Options{Profile: testProfile})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func singleItem(amount float64) []domain.LineItem {
	return []domain.LineItem{{Description: "development", Quantity: 1, Rate: amount, Amount: amount}}
}
