package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter builds the echo server with logging, recovery and all routes
// registered.
func NewRouter(h *Handler, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error().Err(err).Bytes("stack", stack).Msg("panic recovered")
			return err
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	h.Register(e)
	return e
}

// Register attaches every route to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/webhooks/stripe", h.handleProviderWebhook)

	v1 := e.Group("/api/v1")

	v1.POST("/invoices", h.createInvoice)
	v1.GET("/invoices", h.listInvoices)
	v1.GET("/invoices/number/:number", h.getInvoiceByNumber)
	v1.GET("/invoices/:id", h.getInvoice)
	v1.PATCH("/invoices/:id", h.updateInvoice)
	v1.DELETE("/invoices/:id", h.deleteInvoice)
	v1.POST("/invoices/:id/send", h.sendInvoice)
	v1.POST("/invoices/:id/view", h.markInvoiceViewed)
	v1.POST("/invoices/:id/duplicate", h.duplicateInvoice)
	v1.POST("/invoices/:id/payments", h.recordPayment)
	v1.GET("/invoices/:id/payments", h.listPayments)
	v1.GET("/invoices/:id/reminders", h.listInvoiceReminders)
	v1.GET("/invoices/:id/credits", h.listInvoiceCredits)
	v1.GET("/invoices/:id/late-fee", h.calculateLateFee)
	v1.POST("/invoices/:id/late-fee", h.applyLateFee)
	v1.POST("/invoices/:id/apply-preset", h.applyPreset)

	v1.POST("/credits", h.applyCredit)
	v1.GET("/projects/:id/deposits", h.listAvailableDeposits)

	v1.POST("/presets", h.createPreset)
	v1.GET("/presets", h.listPresets)
	v1.GET("/presets/default", h.getDefaultPreset)
	v1.GET("/presets/:id", h.getPreset)

	v1.POST("/recurring-rules", h.createRecurringRule)
	v1.GET("/recurring-rules", h.listRecurringRules)
	v1.GET("/recurring-rules/:id", h.getRecurringRule)
	v1.PATCH("/recurring-rules/:id", h.updateRecurringRule)
	v1.POST("/recurring-rules/:id/pause", h.pauseRecurringRule)
	v1.POST("/recurring-rules/:id/resume", h.resumeRecurringRule)

	v1.POST("/scheduled-invoices", h.createScheduledInvoice)
	v1.POST("/scheduled-invoices/:id/cancel", h.cancelScheduledInvoice)
	v1.POST("/scheduled-invoices/:id/generate", h.generateFromMilestone)

	v1.GET("/reports/aging", h.agingReport)
}
