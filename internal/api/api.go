// Package api exposes the billing engine over JSON HTTP. Handlers translate
// between wire types and domain params, delegating every decision to the
// service layer.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/payments"
	"github.com/openclerk/backoffice/internal/service"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	services *service.Services
	provider payments.Provider
	logger   zerolog.Logger

	// webhookSecret verifies incoming provider webhook signatures.
	webhookSecret string
}

// NewHandler creates the HTTP handler set. provider may be nil when no
// payment provider is configured; the webhook route then rejects requests.
func NewHandler(services *service.Services, provider payments.Provider, webhookSecret string, logger zerolog.Logger) *Handler {
	return &Handler{
		services:      services,
		provider:      provider,
		logger:        logger.With().Str("component", "api").Logger(),
		webhookSecret: webhookSecret,
	}
}

// errorBody is the JSON error envelope: {"error": {"code", "message"}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCodeToHTTPStatus maps domain error codes onto HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT, domain.ESTATE, domain.EAPPLIED:
		return http.StatusConflict
	case domain.EINSUFFICIENT:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// renderError writes the error envelope. Internal errors are logged with the
// underlying cause but only a generic message leaves the process.
func (h *Handler) renderError(c echo.Context, err error) error {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Msg("request failed")
	}

	return c.JSON(status, errorBody{Error: errorDetail{
		Code:    code,
		Message: domain.ErrorMessage(err),
	}})
}

// pathID parses the named path parameter as a positive integer id.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("api", "invalid "+name)
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter, returning nil when
// absent.
func queryInt64(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.Invalid("api", "invalid "+name)
	}
	return &v, nil
}
