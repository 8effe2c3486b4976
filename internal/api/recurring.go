package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openclerk/backoffice/internal/domain"
)

type createRuleRequest struct {
	ProjectID  int64             `json:"project_id"`
	ClientID   int64             `json:"client_id"`
	Frequency  domain.Frequency  `json:"frequency"`
	DayOfWeek  *int              `json:"day_of_week"`
	DayOfMonth *int              `json:"day_of_month"`
	LineItems  []domain.LineItem `json:"line_items"`
	StartDate  time.Time         `json:"start_date"`
	EndDate    *time.Time        `json:"end_date"`
}

func (h *Handler) createRecurringRule(c echo.Context) error {
	var req createRuleRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("recurring.create", "invalid request body"))
	}

	rule, err := h.services.Generator.CreateRule(c.Request().Context(), domain.CreateRecurringRuleParams{
		ProjectID:  req.ProjectID,
		ClientID:   req.ClientID,
		Frequency:  req.Frequency,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
		LineItems:  req.LineItems,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toRuleResponse(rule))
}

func (h *Handler) getRecurringRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	rule, err := h.services.Generator.GetRule(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) listRecurringRules(c echo.Context) error {
	projectID, err := queryInt64(c, "project_id")
	if err != nil {
		return h.renderError(c, err)
	}
	var id int64
	if projectID != nil {
		id = *projectID
	}
	rules, err := h.services.Generator.ListRules(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	out := make([]ruleResponse, len(rules))
	for i := range rules {
		out[i] = toRuleResponse(&rules[i])
	}
	return c.JSON(http.StatusOK, out)
}

type updateRuleRequest struct {
	Frequency  *domain.Frequency  `json:"frequency"`
	DayOfWeek  *int               `json:"day_of_week"`
	DayOfMonth *int               `json:"day_of_month"`
	LineItems  *[]domain.LineItem `json:"line_items"`
	EndDate    *time.Time         `json:"end_date"`
}

func (h *Handler) updateRecurringRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	var req updateRuleRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("recurring.update", "invalid request body"))
	}

	rule, err := h.services.Generator.UpdateRule(c.Request().Context(), id, domain.UpdateRecurringRuleParams{
		Frequency:  req.Frequency,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
		LineItems:  req.LineItems,
		EndDate:    req.EndDate,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) pauseRecurringRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	if err := h.services.Generator.PauseRule(c.Request().Context(), id); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) resumeRecurringRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	if err := h.services.Generator.ResumeRule(c.Request().Context(), id); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type createScheduledRequest struct {
	ProjectID     int64                   `json:"project_id"`
	ClientID      int64                   `json:"client_id"`
	ScheduledDate time.Time               `json:"scheduled_date"`
	TriggerType   domain.ScheduledTrigger `json:"trigger_type"`
	LineItems     []domain.LineItem       `json:"line_items"`
}

func (h *Handler) createScheduledInvoice(c echo.Context) error {
	var req createScheduledRequest
	if err := c.Bind(&req); err != nil {
		return h.renderError(c, domain.Invalid("scheduled.create", "invalid request body"))
	}

	scheduled, err := h.services.Generator.Schedule(c.Request().Context(), domain.CreateScheduledInvoiceParams{
		ProjectID:     req.ProjectID,
		ClientID:      req.ClientID,
		ScheduledDate: req.ScheduledDate,
		TriggerType:   req.TriggerType,
		LineItems:     req.LineItems,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toScheduledResponse(scheduled))
}

func (h *Handler) cancelScheduledInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	if err := h.services.Generator.CancelScheduled(c.Request().Context(), id); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// generateFromMilestone fires a milestone-triggered scheduled invoice when
// the project tool reports the milestone complete.
func (h *Handler) generateFromMilestone(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.renderError(c, err)
	}
	inv, err := h.services.Generator.GenerateFromMilestone(c.Request().Context(), id)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, toInvoiceResponse(inv))
}
