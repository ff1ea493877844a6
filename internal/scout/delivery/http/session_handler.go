package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/internal/scout/service"
	"edtech-market-scout/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SessionHandler handles HTTP requests for research sessions.
type SessionHandler struct {
	orchestrator   service.Orchestrator
	sessionService service.SessionService
	logger         *logger.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(orchestrator service.Orchestrator, sessionService service.SessionService, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{orchestrator: orchestrator, sessionService: sessionService, logger: logger}
}

// RegisterRoutes registers the session routes to the Echo group.
func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/research/sessions/start", h.StartSession)
	g.GET("/research/sessions", h.ListSessions)
	g.GET("/research/sessions/:id", h.GetSession)
	g.GET("/research/sessions/:id/logs", h.GetSessionLogs)
	g.POST("/research/sessions/:id/refresh", h.RefreshSession)
	g.PUT("/research/sessions/:id/scoring", h.UpdateScoring)
	g.GET("/research/sessions/:id/trends", h.GetTrend)
	g.GET("/research/session-companies/:id", h.GetCompanyProfile)
}

// StartSession creates a new research session and dispatches it.
func (h *SessionHandler) StartSession(c echo.Context) error {
	var req dto.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}
	if req.Segment == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "segment is required"})
	}

	session, err := h.orchestrator.Start(c.Request().Context(), req.Segment, req.MaxCompanies)
	if err != nil {
		h.logger.Error("Failed to start session", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, session)
}

// ListSessions returns recent sessions ordered by last update.
func (h *SessionHandler) ListSessions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	sessions, err := h.sessionService.List(c.Request().Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list sessions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSession returns the full session view including companies.
func (h *SessionHandler) GetSession(c echo.Context) error {
	session, err := h.sessionService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.renderError(c, err, "Failed to get session")
	}
	return c.JSON(http.StatusOK, session)
}

// GetSessionLogs returns the log slice for a session, optionally filtered
// to entries strictly after the RFC3339 "since" timestamp.
func (h *SessionHandler) GetSessionLogs(c echo.Context) error {
	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid since timestamp, expected RFC3339"})
		}
		since = &parsed
	}

	logs, err := h.sessionService.GetLogs(c.Request().Context(), c.Param("id"), since)
	if err != nil {
		return h.renderError(c, err, "Failed to get session logs")
	}
	return c.JSON(http.StatusOK, logs)
}

// RefreshSession re-runs discovery and profiling for an existing session.
func (h *SessionHandler) RefreshSession(c echo.Context) error {
	if err := h.orchestrator.Refresh(c.Request().Context(), c.Param("id")); err != nil {
		return h.renderError(c, err, "Failed to refresh session")
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "dispatched"})
}

// UpdateScoring overwrites the scoring configuration for a session.
func (h *SessionHandler) UpdateScoring(c echo.Context) error {
	var cfg dto.ScoringConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}

	if err := h.sessionService.UpdateScoring(c.Request().Context(), c.Param("id"), &cfg); err != nil {
		return h.renderError(c, err, "Failed to update scoring config")
	}
	return c.JSON(http.StatusOK, cfg)
}

// GetTrend returns the latest trend analysis for a session.
func (h *SessionHandler) GetTrend(c echo.Context) error {
	trend, err := h.sessionService.GetTrend(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.renderError(c, err, "Failed to get trend")
	}
	return c.JSON(http.StatusOK, trend)
}

// GetCompanyProfile returns a company with its profile and sources.
func (h *SessionHandler) GetCompanyProfile(c echo.Context) error {
	profile, err := h.sessionService.GetCompanyProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.renderError(c, err, "Failed to get company profile")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *SessionHandler) renderError(c echo.Context, err error, logMessage string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	}
	h.logger.Error(logMessage, logger.ErrorField(err))
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
}
