package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"

	"github.com/openclerk/backoffice/internal/domain"
)

// maxWebhookBodyBytes caps webhook payloads, matching Stripe's documented
// limit.
const maxWebhookBodyBytes = 65536

// handleProviderWebhook ingests payment provider webhook events. Signature
// verification happens before any parsing; invoice events funnel into
// SyncFromProvider, which is idempotent against redelivery.
func (h *Handler) handleProviderWebhook(c echo.Context) error {
	if h.provider == nil {
		return h.renderError(c, domain.Invalid("webhook", "no payment provider configured"))
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		return h.renderError(c, domain.Invalid("webhook", "error reading request body"))
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return h.renderError(c, domain.Invalid("webhook", "missing signature"))
	}
	if err := h.provider.VerifyWebhookSignature(payload, signature, h.webhookSecret); err != nil {
		h.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return c.JSON(http.StatusUnauthorized, errorBody{Error: errorDetail{
			Code:    domain.EINVALID,
			Message: "invalid signature",
		}})
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return h.renderError(c, domain.Invalid("webhook", "invalid JSON"))
	}

	switch event.Type {
	case "invoice.paid", "invoice.payment_succeeded", "invoice.voided", "invoice.marked_uncollectible":
		if event.Data == nil {
			return h.renderError(c, domain.Invalid("webhook", "missing event data"))
		}
		var remote stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &remote); err != nil {
			return h.renderError(c, domain.Invalid("webhook", "invalid invoice payload"))
		}
		if err := h.services.Invoices.SyncFromProvider(c.Request().Context(), remote.ID); err != nil {
			// Unknown provider invoices are acknowledged so Stripe stops
			// redelivering events for invoices we never mirrored.
			if domain.IsCode(err, domain.ENOTFOUND) {
				h.logger.Info().Str("provider_invoice_id", remote.ID).Msg("webhook for unmirrored invoice ignored")
				return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
			}
			return h.renderError(c, err)
		}
		h.logger.Info().
			Str("event_type", string(event.Type)).
			Str("provider_invoice_id", remote.ID).
			Msg("provider invoice synced")

	default:
		h.logger.Debug().Str("event_type", string(event.Type)).Msg("webhook event ignored")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
