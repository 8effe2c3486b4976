package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openclerk/backoffice/internal/domain"
)

type createInvoiceRequest struct {
	ProjectID int64  `json:"project_id"`
	ClientID  int64  `json:"client_id"`
	Currency  string `json:"currency"`
	Prefix    string `json:"prefix"`

	Type                domain.InvoiceType `json:"type"`
	DepositForProjectID *int64             `json:"deposit_for_project_id"`
	DepositPercentage   *float64           `json:"deposit_percentage"`

	LineItems []domain.LineItem `json:"line_items"`

	TaxRate       float64             `json:"tax_rate"`
	DiscountType  domain.DiscountType `json:"discount_type"`
	DiscountValue float64             `json:"discount_value"`

	LateFeeType domain.LateFeeType `json:"late_fee_type"`
	LateFeeRate float64            `json:"late_fee_rate"`

	IssuedDate *time.Time `json:"issued_date"`
	DueDate    *time.Time `json:"due_date"`
	PresetID   *int64     `json:"preset_id"`

	BusinessName        string `json:"business_name"`
	BusinessEmail       string `json:"business_email"`
	ClientName          string `json:"client_name"`
	ClientEmail         string `json:"client_email"`
	PaymentInstructions string `json:"payment_instructions"`
	Notes               string `json:"notes"`
}

func (h *Handler) createInvoice(c echo.Context) error {
	var req createInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("invoice.create", "invalid request body"))
	}

	inv, err := h.services.Invoices.Create(c.Request().Context(), domain.CreateInvoiceParams{
		ProjectID:           req.ProjectID,
		ClientID:            req.ClientID,
		Currency:            req.Currency,
		Prefix:              req.Prefix,
		Type:                req.Type,
		DepositForProjectID: req.DepositForProjectID,
		DepositPercentage:   req.DepositPercentage,
		LineItems:           req.LineItems,
		TaxRate:             req.TaxRate,
		DiscountType:        req.DiscountType,
		DiscountValue:       req.DiscountValue,
		LateFeeType:         req.LateFeeType,
		LateFeeRate:         req.LateFeeRate,
		IssuedDate:          req.IssuedDate,
		DueDate:             req.DueDate,
		PresetID:            req.PresetID,
		BusinessName:        req.BusinessName,
		BusinessEmail:       req.BusinessEmail,
		ClientName:          req.ClientName,
		ClientEmail:         req.ClientEmail,
		PaymentInstructions: req.PaymentInstructions,
		Notes:               req.Notes,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) getInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	inv, err := h.services.Invoices.Get(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) getInvoiceByNumber(c echo.Context) error {
	number := c.Param("number")
	if number == "" {
		return h.renderError(c, domain.Invalid("invoice.get", "invoice number required"))
	}
	inv, err := h.services.Invoices.GetByNumber(c.Request().Context(), number)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) listInvoices(c echo.Context) error {
	filter, err := invoiceFilterFromQuery(c)
	if err != nil {
		return h.renderError(c, err)
	}
	invoices, err := h.services.Invoices.List(c.Request().Context(), filter)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponses(invoices))
}

func invoiceFilterFromQuery(c echo.Context) (domain.InvoiceFilter, error) {
	var filter domain.InvoiceFilter

	projectID, err := queryInt64(c, "project_id")
	if err != nil {
		return filter, err
	}
	filter.ProjectID = projectID

	clientID, err := queryInt64(c, "client_id")
	if err != nil {
		return filter, err
	}
	filter.ClientID = clientID

	if raw := c.QueryParam("status"); raw != "" {
		status := domain.InvoiceStatus(raw)
		if !status.Valid() {
			return filter, domain.Invalid("invoice.list", "unknown status: "+raw)
		}
		filter.Status = &status
	}
	if raw := c.QueryParam("type"); raw != "" {
		typ := domain.InvoiceType(raw)
		filter.Type = &typ
	}
	filter.Outstanding = c.QueryParam("outstanding") == "true"

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit < 0 {
			return filter, domain.Invalid("invoice.list", "invalid limit")
		}
		filter.Limit = int32(limit)
	}
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || offset < 0 {
			return filter, domain.Invalid("invoice.list", "invalid offset")
		}
		filter.Offset = int32(offset)
	}
	return filter, nil
}

type updateInvoiceRequest struct {
	LineItems     *[]domain.LineItem   `json:"line_items"`
	TaxRate       *float64             `json:"tax_rate"`
	DiscountType  *domain.DiscountType `json:"discount_type"`
	DiscountValue *float64             `json:"discount_value"`

	LateFeeType *domain.LateFeeType `json:"late_fee_type"`
	LateFeeRate *float64            `json:"late_fee_rate"`

	IssuedDate *time.Time `json:"issued_date"`
	DueDate    *time.Time `json:"due_date"`

	BusinessName        *string `json:"business_name"`
	BusinessEmail       *string `json:"business_email"`
	ClientName          *string `json:"client_name"`
	ClientEmail         *string `json:"client_email"`
	PaymentInstructions *string `json:"payment_instructions"`
	Notes               *string `json:"notes"`
}

func (h *Handler) updateInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	var req updateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("invoice.update", "invalid request body"))
	}

	inv, err := h.services.Invoices.Update(c.Request().Context(), id, domain.UpdateInvoiceParams{
		LineItems:           req.LineItems,
		TaxRate:             req.TaxRate,
		DiscountType:        req.DiscountType,
		DiscountValue:       req.DiscountValue,
		LateFeeType:         req.LateFeeType,
		LateFeeRate:         req.LateFeeRate,
		IssuedDate:          req.IssuedDate,
		DueDate:             req.DueDate,
		BusinessName:        req.BusinessName,
		BusinessEmail:       req.BusinessEmail,
		ClientName:          req.ClientName,
		ClientEmail:         req.ClientEmail,
		PaymentInstructions: req.PaymentInstructions,
		Notes:               req.Notes,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) deleteInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	action, err := h.services.Invoices.DeleteOrVoid(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"action": string(action)})
}

func (h *Handler) sendInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	inv, err := h.services.Invoices.Send(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) markInvoiceViewed(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	inv, err := h.services.Invoices.MarkViewed(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) duplicateInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	inv, err := h.services.Invoices.Duplicate(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toInvoiceResponse(inv))
}

type recordPaymentRequest struct {
	Amount    float64    `json:"amount"`
	Method    string     `json:"method"`
	Reference string     `json:"reference"`
	Date      *time.Time `json:"date"`
	Notes     string     `json:"notes"`
}

func (h *Handler) recordPayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	var req recordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("invoice.record_payment", "invalid request body"))
	}

	inv, err := h.services.Invoices.RecordPayment(c.Request().Context(), domain.RecordPaymentParams{
		InvoiceID: id,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Date:      req.Date,
		Notes:     req.Notes,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) listPayments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	records, err := h.services.Invoices.Payments(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toPaymentResponses(records))
}

func (h *Handler) listInvoiceReminders(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	reminders, err := h.services.Reminders.RemindersForInvoice(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toReminderResponses(reminders))
}
