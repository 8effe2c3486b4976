package api

import (
	"time"

	"github.com/openclerk/backoffice/internal/domain"
)

// invoiceResponse is the wire representation of an invoice.
type invoiceResponse struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`

	ProjectID int64 `json:"project_id"`
	ClientID  int64 `json:"client_id"`

	Type                domain.InvoiceType `json:"type"`
	DepositForProjectID *int64             `json:"deposit_for_project_id,omitempty"`
	DepositPercentage   *float64           `json:"deposit_percentage,omitempty"`

	Status   domain.InvoiceStatus `json:"status"`
	Currency string               `json:"currency"`

	LineItems []domain.LineItem `json:"line_items"`

	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"tax_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	AmountTotal    float64 `json:"amount_total"`
	AmountPaid     float64 `json:"amount_paid"`
	Outstanding    float64 `json:"outstanding"`

	TaxRate       float64             `json:"tax_rate"`
	DiscountType  domain.DiscountType `json:"discount_type,omitempty"`
	DiscountValue float64             `json:"discount_value,omitempty"`

	LateFeeType      domain.LateFeeType `json:"late_fee_type,omitempty"`
	LateFeeRate      float64            `json:"late_fee_rate,omitempty"`
	LateFeeAmount    float64            `json:"late_fee_amount,omitempty"`
	LateFeeAppliedAt *time.Time         `json:"late_fee_applied_at,omitempty"`
	GracePeriodDays  int                `json:"grace_period_days,omitempty"`

	IssuedDate *time.Time `json:"issued_date,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	PaidDate   *time.Time `json:"paid_date,omitempty"`

	BusinessName        string `json:"business_name,omitempty"`
	BusinessEmail       string `json:"business_email,omitempty"`
	ClientName          string `json:"client_name,omitempty"`
	ClientEmail         string `json:"client_email,omitempty"`
	PaymentInstructions string `json:"payment_instructions,omitempty"`
	Notes               string `json:"notes,omitempty"`

	ProviderInvoiceID string `json:"provider_invoice_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                  inv.ID,
		Number:              inv.Number,
		ProjectID:           inv.ProjectID,
		ClientID:            inv.ClientID,
		Type:                inv.Type,
		DepositForProjectID: inv.DepositForProjectID,
		DepositPercentage:   inv.DepositPercentage,
		Status:              inv.Status,
		Currency:            inv.Currency,
		LineItems:           inv.LineItems,
		Subtotal:            inv.Subtotal,
		TaxAmount:           inv.TaxAmount,
		DiscountAmount:      inv.DiscountAmount,
		AmountTotal:         inv.AmountTotal,
		AmountPaid:          inv.AmountPaid,
		Outstanding:         inv.Outstanding(),
		TaxRate:             inv.TaxRate,
		DiscountType:        inv.DiscountType,
		DiscountValue:       inv.DiscountValue,
		LateFeeType:         inv.LateFeeType,
		LateFeeRate:         inv.LateFeeRate,
		LateFeeAmount:       inv.LateFeeAmount,
		LateFeeAppliedAt:    inv.LateFeeAppliedAt,
		GracePeriodDays:     inv.GracePeriodDays,
		IssuedDate:          inv.IssuedDate,
		DueDate:             inv.DueDate,
		PaidDate:            inv.PaidDate,
		BusinessName:        inv.BusinessName,
		BusinessEmail:       inv.BusinessEmail,
		ClientName:          inv.ClientName,
		ClientEmail:         inv.ClientEmail,
		PaymentInstructions: inv.PaymentInstructions,
		Notes:               inv.Notes,
		ProviderInvoiceID:   inv.ProviderInvoiceID,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
	}
}

func toInvoiceResponses(invoices []domain.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = toInvoiceResponse(&invoices[i])
	}
	return out
}

type paymentResponse struct {
	ID        int64     `json:"id"`
	InvoiceID int64     `json:"invoice_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPaymentResponses(records []domain.PaymentRecord) []paymentResponse {
	out := make([]paymentResponse, len(records))
	for i, p := range records {
		out[i] = paymentResponse{
			ID:        p.ID,
			InvoiceID: p.InvoiceID,
			Amount:    p.Amount,
			Method:    p.Method,
			Reference: p.Reference,
			Date:      p.Date,
			Notes:     p.Notes,
			CreatedAt: p.CreatedAt,
		}
	}
	return out
}

type creditResponse struct {
	ID               int64     `json:"id"`
	InvoiceID        int64     `json:"invoice_id"`
	DepositInvoiceID int64     `json:"deposit_invoice_id"`
	Amount           float64   `json:"amount"`
	AppliedAt        time.Time `json:"applied_at"`
	AppliedBy        string    `json:"applied_by,omitempty"`
}

func toCreditResponse(c *domain.InvoiceCredit) creditResponse {
	return creditResponse{
		ID:               c.ID,
		InvoiceID:        c.InvoiceID,
		DepositInvoiceID: c.DepositInvoiceID,
		Amount:           c.Amount,
		AppliedAt:        c.AppliedAt,
		AppliedBy:        c.AppliedBy,
	}
}

type depositResponse struct {
	Invoice   invoiceResponse `json:"invoice"`
	Applied   float64         `json:"applied"`
	Available float64         `json:"available"`
}

type reminderResponse struct {
	ID            int64                 `json:"id"`
	InvoiceID     int64                 `json:"invoice_id"`
	Type          domain.ReminderType   `json:"type"`
	ScheduledDate time.Time             `json:"scheduled_date"`
	Status        domain.ReminderStatus `json:"status"`
}

func toReminderResponses(reminders []domain.InvoiceReminder) []reminderResponse {
	out := make([]reminderResponse, len(reminders))
	for i, r := range reminders {
		out[i] = reminderResponse{
			ID:            r.ID,
			InvoiceID:     r.InvoiceID,
			Type:          r.Type,
			ScheduledDate: r.ScheduledDate,
			Status:        r.Status,
		}
	}
	return out
}

type presetResponse struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	DaysUntilDue      int                `json:"days_until_due"`
	LateFeeType       domain.LateFeeType `json:"late_fee_type"`
	LateFeeRate       float64            `json:"late_fee_rate,omitempty"`
	LateFeeFlatAmount float64            `json:"late_fee_flat_amount,omitempty"`
	GracePeriodDays   int                `json:"grace_period_days,omitempty"`
	IsDefault         bool               `json:"is_default"`
}

func toPresetResponse(p *domain.PaymentTermsPreset) presetResponse {
	return presetResponse{
		ID:                p.ID,
		Name:              p.Name,
		DaysUntilDue:      p.DaysUntilDue,
		LateFeeType:       p.LateFeeType,
		LateFeeRate:       p.LateFeeRate,
		LateFeeFlatAmount: p.LateFeeFlatAmount,
		GracePeriodDays:   p.GracePeriodDays,
		IsDefault:         p.IsDefault,
	}
}

type ruleResponse struct {
	ID        int64 `json:"id"`
	ProjectID int64 `json:"project_id"`
	ClientID  int64 `json:"client_id"`

	Frequency  domain.Frequency `json:"frequency"`
	DayOfWeek  *int             `json:"day_of_week,omitempty"`
	DayOfMonth *int             `json:"day_of_month,omitempty"`

	LineItems []domain.LineItem `json:"line_items"`

	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	NextGenerationDate time.Time  `json:"next_generation_date"`
	LastGeneratedAt    *time.Time `json:"last_generated_at,omitempty"`
	IsActive           bool       `json:"is_active"`
}

func toRuleResponse(r *domain.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		ClientID:           r.ClientID,
		Frequency:          r.Frequency,
		DayOfWeek:          r.DayOfWeek,
		DayOfMonth:         r.DayOfMonth,
		LineItems:          r.LineItems,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		NextGenerationDate: r.NextGenerationDate,
		LastGeneratedAt:    r.LastGeneratedAt,
		IsActive:           r.IsActive,
	}
}

type scheduledResponse struct {
	ID                 int64                   `json:"id"`
	ProjectID          int64                   `json:"project_id"`
	ClientID           int64                   `json:"client_id"`
	ScheduledDate      time.Time               `json:"scheduled_date"`
	TriggerType        domain.ScheduledTrigger `json:"trigger_type"`
	LineItems          []domain.LineItem       `json:"line_items"`
	Status             domain.ScheduledStatus  `json:"status"`
	GeneratedInvoiceID *int64                  `json:"generated_invoice_id,omitempty"`
}

func toScheduledResponse(s *domain.ScheduledInvoice) scheduledResponse {
	return scheduledResponse{
		ID:                 s.ID,
		ProjectID:          s.ProjectID,
		ClientID:           s.ClientID,
		ScheduledDate:      s.ScheduledDate,
		TriggerType:        s.TriggerType,
		LineItems:          s.LineItems,
		Status:             s.Status,
		GeneratedInvoiceID: s.GeneratedInvoiceID,
	}
}

type agingBucketResponse struct {
	Label       string            `json:"label"`
	Count       int               `json:"count"`
	TotalAmount float64           `json:"total_amount"`
	Invoices    []invoiceResponse `json:"invoices"`
}

type agingReportResponse struct {
	Buckets          []agingBucketResponse `json:"buckets"`
	TotalOutstanding float64               `json:"total_outstanding"`
}

func toAgingResponse(report *domain.AgingReport) agingReportResponse {
	out := agingReportResponse{
		Buckets:          make([]agingBucketResponse, len(report.Buckets)),
		TotalOutstanding: report.TotalOutstanding,
	}
	for i, b := range report.Buckets {
		out.Buckets[i] = agingBucketResponse{
			Label:       b.Label,
			Count:       b.Count,
			TotalAmount: b.TotalAmount,
			Invoices:    toInvoiceResponses(b.Invoices),
		}
	}
	return out
}
