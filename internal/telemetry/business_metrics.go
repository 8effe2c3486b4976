package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for billing-level observability.
type BusinessMetrics struct {
	// Invoice lifecycle
	InvoicesCreated    *prometheus.CounterVec
	InvoicesSent       prometheus.Counter
	InvoicesPaid       prometheus.Counter
	InvoicesVoided     prometheus.Counter
	InvoicesOverdue    prometheus.Counter
	InvoiceValue       prometheus.Histogram
	DaysToPayment      prometheus.Histogram

	// Payments
	PaymentsRecorded *prometheus.CounterVec
	PaymentValue     prometheus.Histogram

	// Deposit credits
	CreditsApplied prometheus.Counter
	CreditValue    prometheus.Histogram

	// Late fees
	LateFeesApplied prometheus.Counter
	LateFeeValue    prometheus.Histogram

	// Generation
	RecurringGenerated prometheus.Counter
	ScheduledGenerated prometheus.Counter

	// Reminders
	RemindersSent   *prometheus.CounterVec
	RemindersFailed prometheus.Counter

	// Background sweeps
	SweepsRun      *prometheus.CounterVec
	SweepFailures  *prometheus.CounterVec
	SweepDuration  *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics on the
// default registry.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return newBusinessMetrics(prometheus.DefaultRegisterer, namespace)
}

// NewBusinessMetricsWith registers on the given registerer; tests use a
// private registry so repeated construction never panics.
func NewBusinessMetricsWith(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	return newBusinessMetrics(reg, namespace)
}

func newBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "backoffice"
	}

	subsystem := "billing"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		InvoicesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invoices_created_total",
				Help:      "Total invoices created",
			},
			[]string{"type"}, // type: standard, deposit
		),
		InvoicesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoices_sent_total",
			Help:      "Total invoices transitioned to sent",
		}),
		InvoicesPaid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoices_paid_total",
			Help:      "Total invoices fully paid",
		}),
		InvoicesVoided: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoices_voided_total",
			Help:      "Total invoices cancelled after issue",
		}),
		InvoicesOverdue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoices_overdue_total",
			Help:      "Total invoices swept into overdue",
		}),
		InvoiceValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoice_value",
			Help:      "Invoice totals at creation",
			Buckets:   prometheus.ExponentialBuckets(50, 2.5, 10),
		}),
		DaysToPayment: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "days_to_payment",
			Help:      "Whole days from issue to full payment",
			Buckets:   []float64{1, 3, 7, 14, 30, 45, 60, 90},
		}),
		PaymentsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_recorded_total",
				Help:      "Total payments recorded",
			},
			[]string{"method"},
		),
		PaymentValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_value",
			Help:      "Recorded payment amounts",
			Buckets:   prometheus.ExponentialBuckets(50, 2.5, 10),
		}),
		CreditsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "credits_applied_total",
			Help:      "Total deposit credit applications",
		}),
		CreditValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "credit_value",
			Help:      "Applied deposit credit amounts",
			Buckets:   prometheus.ExponentialBuckets(50, 2.5, 10),
		}),
		LateFeesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "late_fees_applied_total",
			Help:      "Total late fees applied",
		}),
		LateFeeValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "late_fee_value",
			Help:      "Applied late fee amounts",
			Buckets:   prometheus.ExponentialBuckets(5, 2.5, 8),
		}),
		RecurringGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recurring_invoices_generated_total",
			Help:      "Total invoices materialized from recurring rules",
		}),
		ScheduledGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduled_invoices_generated_total",
			Help:      "Total invoices materialized from scheduled entries",
		}),
		RemindersSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reminders_sent_total",
				Help:      "Total reminders dispatched",
			},
			[]string{"reminder_type"},
		),
		RemindersFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_failed_total",
			Help:      "Total reminder dispatch failures",
		}),
		SweepsRun: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweeps_run_total",
				Help:      "Total background sweep executions",
			},
			[]string{"sweep"},
		),
		SweepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_failures_total",
				Help:      "Total per-item failures inside sweeps",
			},
			[]string{"sweep"},
		),
		SweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_duration_seconds",
				Help:      "Background sweep wall time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sweep"},
		),
	}
}
