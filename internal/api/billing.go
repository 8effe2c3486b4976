package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openclerk/backoffice/internal/domain"
)

type applyCreditRequest struct {
	InvoiceID        int64   `json:"invoice_id"`
	DepositInvoiceID int64   `json:"deposit_invoice_id"`
	Amount           float64 `json:"amount"`
	AppliedBy        string  `json:"applied_by"`
}

func (h *Handler) applyCredit(c echo.Context) error {
	var req applyCreditRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("credit.apply", "invalid request body"))
	}

	credit, err := h.services.Credits.ApplyCredit(c.Request().Context(), domain.ApplyCreditParams{
		InvoiceID:        req.InvoiceID,
		DepositInvoiceID: req.DepositInvoiceID,
		Amount:           req.Amount,
		AppliedBy:        req.AppliedBy,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toCreditResponse(credit))
}

func (h *Handler) listInvoiceCredits(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	credits, err := h.services.Credits.CreditsForInvoice(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	out := make([]creditResponse, len(credits))
	for i := range credits {
		out[i] = toCreditResponse(&credits[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) listAvailableDeposits(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	deposits, err := h.services.Credits.GetAvailableDeposits(c.Request().Context(), projectID)
	if err != nil {
		return h.renderError(c, err)
	}
	out := make([]depositResponse, len(deposits))
	for i, d := range deposits {
		out[i] = depositResponse{
			Invoice:   toInvoiceResponse(&d.Invoice),
			Applied:   d.Applied,
			Available: d.Available,
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) calculateLateFee(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	fee, err := h.services.LateFees.CalculateLateFee(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]float64{"late_fee": fee})
}

func (h *Handler) applyLateFee(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	inv, err := h.services.LateFees.ApplyLateFee(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

type createPresetRequest struct {
	Name              string             `json:"name"`
	DaysUntilDue      int                `json:"days_until_due"`
	LateFeeType       domain.LateFeeType `json:"late_fee_type"`
	LateFeeRate       float64            `json:"late_fee_rate"`
	LateFeeFlatAmount float64            `json:"late_fee_flat_amount"`
	GracePeriodDays   int                `json:"grace_period_days"`
	IsDefault         bool               `json:"is_default"`
}

func (h *Handler) createPreset(c echo.Context) error {
	var req createPresetRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("terms.create_preset", "invalid request body"))
	}

	preset, err := h.services.PaymentTerms.CreatePreset(c.Request().Context(), domain.CreatePresetParams{
		Name:              req.Name,
		DaysUntilDue:      req.DaysUntilDue,
		LateFeeType:       req.LateFeeType,
		LateFeeRate:       req.LateFeeRate,
		LateFeeFlatAmount: req.LateFeeFlatAmount,
		GracePeriodDays:   req.GracePeriodDays,
		IsDefault:         req.IsDefault,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toPresetResponse(preset))
}

func (h *Handler) getPreset(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	preset, err := h.services.PaymentTerms.GetPreset(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toPresetResponse(preset))
}

func (h *Handler) getDefaultPreset(c echo.Context) error {
	preset, err := h.services.PaymentTerms.GetDefaultPreset(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toPresetResponse(preset))
}

func (h *Handler) listPresets(c echo.Context) error {
	presets, err := h.services.PaymentTerms.ListPresets(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}
	out := make([]presetResponse, len(presets))
	for i := range presets {
		out[i] = toPresetResponse(&presets[i])
	}
	return c.JSON(http.StatusOK, out)
}

type applyPresetRequest struct {
	PresetID int64 `json:"preset_id"`
}

func (h *Handler) applyPreset(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	var req applyPresetRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("terms.apply_preset", "invalid request body"))
	}
	inv, err := h.services.PaymentTerms.ApplyPreset(c.Request().Context(), id, req.PresetID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) agingReport(c echo.Context) error {
	clientID, err := queryInt64(c, "client_id")
	if err != nil {
		return h.renderError(c, err)
	}
	var id int64
	if clientID != nil {
		id = *clientID
	}
	report, err := h.services.Aging.GetAgingReport(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toAgingResponse(report))
}
