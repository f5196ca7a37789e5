// Package api exposes the service over HTTP with Echo.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tiltguard/internal/logging"
	"tiltguard/internal/service"
	"tiltguard/internal/validation"
)

// IDRequest carries a resource ID from the path.
type IDRequest struct {
	ID string `param:"id" validate:"required,max=64"`
}

// UserListRequest selects a user's records.
type UserListRequest struct {
	UserID string `param:"userId" validate:"required,max=64"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// MetricsRequest selects a user's report and its reference instant.
type MetricsRequest struct {
	UserID string `param:"userId" validate:"required,max=64"`
	At     string `query:"at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// BatchRequest selects users for a batch computation.
type BatchRequest struct {
	ActiveOnly bool `query:"active"`
}

// Handler implements the REST routes.
type Handler struct {
	svc    *service.Service
	logger zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *service.Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes registers the REST routes on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	g.POST("/users", h.CreateUser)
	g.GET("/users", h.ListUsers)
	g.GET("/users/:id", h.GetUser)
	g.PUT("/users/:id/strategy", h.UpdateStrategy)

	g.POST("/trades", h.RecordTrade)
	g.GET("/trades/user/:userId", h.ListTrades)
	g.DELETE("/trades/:id", h.DeleteTrade)

	g.GET("/metrics", h.AllMetrics)
	g.GET("/metrics/:userId", h.Metrics)
	g.GET("/metrics/:userId/pretrade", h.PreTrade)

	g.POST("/journal", h.AddJournal)
	g.GET("/journal/user/:userId", h.ListJournal)
}

func (h *Handler) fail(c echo.Context, op string, err error) error {
	logger := logging.FromContext(c.Request().Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = h.logger
	}
	opLogger := logging.WithOperation(logger, op)
	opLogger.Debug().Err(err).Str("route", c.Path()).Msg("Request failed")
	return ErrorResponse(c, err)
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(c echo.Context) error {
	in := &validation.UserInput{}
	if err := c.Bind(in); err != nil {
		return BadRequestResponse(c, requestErrors(err))
	}

	user, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "create_user", err)
	}
	return CreatedResponse(c, user)
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return h.fail(c, "list_users", err)
	}
	return SuccessResponse(c, users)
}

// GetUser handles GET /api/users/:id.
func (h *Handler) GetUser(c echo.Context) error {
	req := &IDRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	user, err := h.svc.GetUser(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "get_user", err)
	}
	return SuccessResponse(c, user)
}

// UpdateStrategy handles PUT /api/users/:id/strategy.
func (h *Handler) UpdateStrategy(c echo.Context) error {
	in := &validation.StrategyInput{}
	if err := c.Bind(in); err != nil {
		return BadRequestResponse(c, requestErrors(err))
	}

	user, err := h.svc.UpdateStrategy(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return h.fail(c, "update_strategy", err)
	}
	return SuccessResponse(c, user)
}

// RecordTrade handles POST /api/trades.
func (h *Handler) RecordTrade(c echo.Context) error {
	in := &validation.TradeInput{}
	if err := c.Bind(in); err != nil {
		return BadRequestResponse(c, requestErrors(err))
	}

	trade, err := h.svc.RecordTrade(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "record_trade", err)
	}
	return CreatedResponse(c, trade)
}

// ListTrades handles GET /api/trades/user/:userId.
func (h *Handler) ListTrades(c echo.Context) error {
	req := &UserListRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	trades, err := h.svc.ListTrades(c.Request().Context(), req.UserID, req.Limit)
	if err != nil {
		return h.fail(c, "list_trades", err)
	}
	return SuccessResponse(c, trades)
}

// DeleteTrade handles DELETE /api/trades/:id.
func (h *Handler) DeleteTrade(c echo.Context) error {
	req := &IDRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	if err := h.svc.DeleteTrade(c.Request().Context(), req.ID); err != nil {
		return h.fail(c, "delete_trade", err)
	}
	return NoContentResponse(c)
}

// Metrics handles GET /api/metrics/:userId.
func (h *Handler) Metrics(c echo.Context) error {
	req := &MetricsRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	at := h.svc.Now()
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			return BadRequestResponse(c, []FieldError{{Code: "ERR_DATETIME", Field: "at", Message: err.Error()}})
		}
		at = parsed
	}

	report, err := h.svc.ReportAt(c.Request().Context(), req.UserID, at)
	if err != nil {
		return h.fail(c, "metrics", err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return SuccessResponse(c, report)
}

// AllMetrics handles GET /api/metrics.
func (h *Handler) AllMetrics(c echo.Context) error {
	req := &BatchRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	reports, err := h.svc.ReportAll(c.Request().Context(), req.ActiveOnly)
	if err != nil {
		return h.fail(c, "metrics_all", err)
	}
	return SuccessResponse(c, reports)
}

// PreTrade handles GET /api/metrics/:userId/pretrade.
func (h *Handler) PreTrade(c echo.Context) error {
	req := &MetricsRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	check, err := h.svc.PreTradeCheck(c.Request().Context(), req.UserID)
	if err != nil {
		return h.fail(c, "pretrade", err)
	}
	return SuccessResponse(c, check)
}

// AddJournal handles POST /api/journal.
func (h *Handler) AddJournal(c echo.Context) error {
	in := &validation.JournalInput{}
	if err := c.Bind(in); err != nil {
		return BadRequestResponse(c, requestErrors(err))
	}

	entry, err := h.svc.AddJournalEntry(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "add_journal", err)
	}
	return CreatedResponse(c, entry)
}

// ListJournal handles GET /api/journal/user/:userId.
func (h *Handler) ListJournal(c echo.Context) error {
	req := &UserListRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}

	entries, err := h.svc.ListJournal(c.Request().Context(), req.UserID, req.Limit)
	if err != nil {
		return h.fail(c, "list_journal", err)
	}
	return SuccessResponse(c, entries)
}

// health reports liveness.
func health(started time.Time, extra func() interface{}) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := map[string]interface{}{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		}
		if extra != nil {
			body["runtime"] = extra()
		}
		return c.JSON(http.StatusOK, body)
	}
}
