package domain

import (
	"context"
	"time"
)

// InvoiceStatus is the closed set of invoice lifecycle states. Transitions
// are only reachable through the InvoiceService so the amountPaid/status
// pairing cannot drift.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusViewed    InvoiceStatus = "viewed"
	StatusPartial   InvoiceStatus = "partial"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusViewed, StatusPartial, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s InvoiceStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// InvoiceType distinguishes ordinary invoices from project deposits whose
// paid amount can be re-applied as credit.
type InvoiceType string

const (
	InvoiceTypeStandard InvoiceType = "standard"
	InvoiceTypeDeposit  InvoiceType = "deposit"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// LateFeeType selects how a late fee is computed from the fee magnitude.
type LateFeeType string

const (
	LateFeeNone            LateFeeType = "none"
	LateFeeFlat            LateFeeType = "flat"
	LateFeePercentage      LateFeeType = "percentage"
	LateFeeDailyPercentage LateFeeType = "daily_percentage"
)

// LineItem is one billable row on an invoice. Amount is the extended price
// (quantity x rate); per-line tax and discount are computed independently of
// invoice-level adjustments.
type LineItem struct {
	Description   string       `json:"description"`
	Quantity      float64      `json:"quantity"`
	Rate          float64      `json:"rate"`
	Amount        float64      `json:"amount"`
	TaxRate       float64      `json:"tax_rate,omitempty"`
	DiscountType  DiscountType `json:"discount_type,omitempty"`
	DiscountValue float64      `json:"discount_value,omitempty"`
}

// Invoice is the billing aggregate. amountPaid and status are only ever
// written together, through the lifecycle manager's payment transition.
type Invoice struct {
	ID     int64
	Number string

	ProjectID int64
	ClientID  int64

	Type                InvoiceType
	DepositForProjectID *int64
	DepositPercentage   *float64

	Status   InvoiceStatus
	Currency string

	LineItems []LineItem

	Subtotal       float64
	TaxAmount      float64
	DiscountAmount float64
	AmountTotal    float64
	AmountPaid     float64

	TaxRate       float64
	DiscountType  DiscountType
	DiscountValue float64

	LateFeeType      LateFeeType
	LateFeeRate      float64
	LateFeeAmount    float64
	LateFeeAppliedAt *time.Time
	GracePeriodDays  int

	IssuedDate *time.Time
	DueDate    *time.Time
	PaidDate   *time.Time

	BusinessName        string
	BusinessEmail       string
	ClientName          string
	ClientEmail         string
	PaymentInstructions string
	Notes               string

	ProviderInvoiceID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outstanding returns the unpaid balance.
func (inv *Invoice) Outstanding() float64 {
	return inv.AmountTotal - inv.AmountPaid
}

// PaymentRecord is one append-only payment history row, distinct from the
// invoice's current amountPaid summary.
type PaymentRecord struct {
	ID        int64
	InvoiceID int64
	Amount    float64
	Method    string
	Reference string
	Date      time.Time
	Notes     string
	CreatedAt time.Time
}

// DeleteAction reports which branch DeleteOrVoid took.
type DeleteAction string

const (
	ActionDeleted DeleteAction = "deleted"
	ActionVoided  DeleteAction = "voided"
)

// InvoiceFilter selects invoices for list queries. Optional fields are nil
// when unset; the repository translates this into parameterized conditions.
type InvoiceFilter struct {
	ProjectID   *int64
	ClientID    *int64
	Status      *InvoiceStatus
	Statuses    []InvoiceStatus
	Type        *InvoiceType
	Outstanding bool
	DueBefore   *time.Time
	Limit       int32
	Offset      int32
}

// CreateInvoiceParams contains parameters for creating an invoice.
type CreateInvoiceParams struct {
	ProjectID int64  `validate:"required,gt=0"`
	ClientID  int64  `validate:"required,gt=0"`
	Currency  string `validate:"omitempty,len=3"`
	Prefix    string

	Type                InvoiceType
	DepositForProjectID *int64
	DepositPercentage   *float64 `validate:"omitempty,gt=0,lte=100"`

	LineItems []LineItem `validate:"required,min=1,dive"`

	TaxRate       float64 `validate:"gte=0"`
	DiscountType  DiscountType
	DiscountValue float64 `validate:"gte=0"`

	LateFeeType LateFeeType
	LateFeeRate float64 `validate:"gte=0"`

	IssuedDate *time.Time
	DueDate    *time.Time

	// PresetID, when set, stamps the preset's due-date offset and late-fee
	// policy onto the new invoice as a snapshot.
	PresetID *int64

	BusinessName        string
	BusinessEmail       string
	ClientName          string
	ClientEmail         string
	PaymentInstructions string
	Notes               string
}

// UpdateInvoiceParams is a patch for a draft invoice. Nil fields are left
// unchanged. Replacing line items or adjusting tax/discount recomputes and
// persists subtotal, taxAmount, discountAmount and amountTotal.
type UpdateInvoiceParams struct {
	LineItems     *[]LineItem `validate:"omitempty,min=1,dive"`
	TaxRate       *float64    `validate:"omitempty,gte=0"`
	DiscountType  *DiscountType
	DiscountValue *float64 `validate:"omitempty,gte=0"`

	LateFeeType *LateFeeType
	LateFeeRate *float64 `validate:"omitempty,gte=0"`

	IssuedDate *time.Time
	DueDate    *time.Time

	BusinessName        *string
	BusinessEmail       *string
	ClientName          *string
	ClientEmail         *string
	PaymentInstructions *string
	Notes               *string
}

// RecordPaymentParams contains parameters for recording a payment.
type RecordPaymentParams struct {
	InvoiceID int64   `validate:"required,gt=0"`
	Amount    float64 `validate:"required"`
	Method    string  `validate:"required"`
	Reference string
	Date      *time.Time
	Notes     string
}

// InvoiceService owns the invoice state machine. Every write to amountPaid
// or status passes through it.
type InvoiceService interface {
	// Create persists a new draft invoice. Line items are required; totals
	// are computed, a fresh number is assigned and the due date defaults to
	// the issue date plus 30 days when absent.
	Create(ctx context.Context, params CreateInvoiceParams) (*Invoice, error)

	// Get retrieves an invoice by id.
	Get(ctx context.Context, id int64) (*Invoice, error)

	// GetByNumber retrieves an invoice by its human-readable number.
	GetByNumber(ctx context.Context, number string) (*Invoice, error)

	// List returns invoices matching the filter.
	List(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Update patches a draft invoice. Non-draft invoices are immutable.
	Update(ctx context.Context, id int64, params UpdateInvoiceParams) (*Invoice, error)

	// Send transitions a draft invoice to sent and schedules its reminder
	// timetable.
	Send(ctx context.Context, id int64) (*Invoice, error)

	// MarkViewed transitions a sent invoice to viewed. Any other state is a
	// no-op so a paid invoice being reopened never regresses.
	MarkViewed(ctx context.Context, id int64) (*Invoice, error)

	// RecordPayment applies a payment and derives the new status. Reaching
	// fully paid (within the configured tolerance) stamps paidDate once and
	// skips all pending reminders.
	RecordPayment(ctx context.Context, params RecordPaymentParams) (*Invoice, error)

	// DeleteOrVoid hard-deletes draft/cancelled invoices (with dependent
	// reminders and credits) and soft-voids anything else except paid
	// invoices, which are immutable.
	DeleteOrVoid(ctx context.Context, id int64) (DeleteAction, error)

	// CheckAndMarkOverdue sweeps sent/viewed/partial invoices past their due
	// date into overdue. Idempotent; returns the number changed.
	CheckAndMarkOverdue(ctx context.Context) (int, error)

	// Duplicate clones line items and business/contact fields into a brand
	// new draft with a fresh number, preserving the issue-to-due day offset.
	Duplicate(ctx context.Context, id int64) (*Invoice, error)

	// Payments returns the append-only payment history for an invoice.
	Payments(ctx context.Context, invoiceID int64) ([]PaymentRecord, error)

	// SyncFromProvider maps a payment provider's invoice state onto the local
	// invoice, recording any newly collected payment. Safe against repeated
	// webhook delivery.
	SyncFromProvider(ctx context.Context, providerInvoiceID string) error
}
