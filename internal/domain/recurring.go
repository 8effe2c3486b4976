package domain

import (
	"context"
	"time"
)

// Frequency is the cadence of a recurring invoice rule.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// RecurringRule periodically materializes a new invoice from its line-item
// template until an optional end date. nextGenerationDate is always advanced
// from its previous value, never from "today", so missed ticks do not drift
// the calendar.
type RecurringRule struct {
	ID        int64
	ProjectID int64
	ClientID  int64

	Frequency  Frequency
	DayOfWeek  *int // 0=Sunday .. 6=Saturday, weekly rules only
	DayOfMonth *int // 1..31, clamped to month length

	LineItems []LineItem

	StartDate          time.Time
	EndDate            *time.Time
	NextGenerationDate time.Time
	LastGeneratedAt    *time.Time
	IsActive           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduledTrigger selects what fires a one-shot scheduled invoice.
type ScheduledTrigger string

const (
	TriggerDate              ScheduledTrigger = "date"
	TriggerMilestoneComplete ScheduledTrigger = "milestone_complete"
)

// ScheduledStatus is the closed state set for a scheduled invoice.
type ScheduledStatus string

const (
	ScheduledPending   ScheduledStatus = "pending"
	ScheduledGenerated ScheduledStatus = "generated"
	ScheduledCancelled ScheduledStatus = "cancelled"
)

// ScheduledInvoice is a one-shot future invoice request. pending entries
// transition to generated (recording the produced invoice id) or cancelled;
// both are terminal.
type ScheduledInvoice struct {
	ID        int64
	ProjectID int64
	ClientID  int64

	ScheduledDate time.Time
	TriggerType   ScheduledTrigger
	LineItems     []LineItem
	Status        ScheduledStatus

	GeneratedInvoiceID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRecurringRuleParams contains parameters for creating a rule.
type CreateRecurringRuleParams struct {
	ProjectID  int64      `validate:"required,gt=0"`
	ClientID   int64      `validate:"required,gt=0"`
	Frequency  Frequency  `validate:"required"`
	DayOfWeek  *int       `validate:"omitempty,gte=0,lte=6"`
	DayOfMonth *int       `validate:"omitempty,gte=1,lte=31"`
	LineItems  []LineItem `validate:"required,min=1,dive"`
	StartDate  time.Time  `validate:"required"`
	EndDate    *time.Time
}

// UpdateRecurringRuleParams is a patch for a rule; nil fields are unchanged.
type UpdateRecurringRuleParams struct {
	Frequency  *Frequency
	DayOfWeek  *int `validate:"omitempty,gte=0,lte=6"`
	DayOfMonth *int `validate:"omitempty,gte=1,lte=31"`
	LineItems  *[]LineItem
	EndDate    *time.Time
}

// CreateScheduledInvoiceParams contains parameters for a one-shot entry.
type CreateScheduledInvoiceParams struct {
	ProjectID     int64            `validate:"required,gt=0"`
	ClientID      int64            `validate:"required,gt=0"`
	ScheduledDate time.Time        `validate:"required"`
	TriggerType   ScheduledTrigger `validate:"required"`
	LineItems     []LineItem       `validate:"required,min=1,dive"`
}

// GeneratorService owns recurring and scheduled invoice generation and the
// next-occurrence date arithmetic.
type GeneratorService interface {
	// CreateRule validates and persists a recurring rule with its initial
	// nextGenerationDate derived from startDate.
	CreateRule(ctx context.Context, params CreateRecurringRuleParams) (*RecurringRule, error)

	// GetRule retrieves a rule by id.
	GetRule(ctx context.Context, id int64) (*RecurringRule, error)

	// ListRules returns all rules for a project (0 = all projects).
	ListRules(ctx context.Context, projectID int64) ([]RecurringRule, error)

	// UpdateRule patches a rule and recomputes nextGenerationDate when the
	// cadence fields change.
	UpdateRule(ctx context.Context, id int64, params UpdateRecurringRuleParams) (*RecurringRule, error)

	// PauseRule flips isActive off; nothing else changes.
	PauseRule(ctx context.Context, id int64) error

	// ResumeRule reactivates a rule and recomputes nextGenerationDate from
	// today, so a long pause does not fire a backlog.
	ResumeRule(ctx context.Context, id int64) error

	// Schedule persists a one-shot scheduled invoice request.
	Schedule(ctx context.Context, params CreateScheduledInvoiceParams) (*ScheduledInvoice, error)

	// CancelScheduled transitions a pending entry to cancelled.
	CancelScheduled(ctx context.Context, id int64) error

	// GenerateFromMilestone fires a pending milestone_complete entry on the
	// external milestone event and returns the materialized invoice.
	GenerateFromMilestone(ctx context.Context, scheduledID int64) (*Invoice, error)

	// ProcessRecurringInvoices materializes invoices for every active rule
	// whose nextGenerationDate has arrived, isolating per-item failures.
	ProcessRecurringInvoices(ctx context.Context) (SweepResult, error)

	// ProcessScheduledInvoices fires pending date-triggered entries whose
	// scheduledDate has arrived.
	ProcessScheduledInvoices(ctx context.Context) (SweepResult, error)
}
