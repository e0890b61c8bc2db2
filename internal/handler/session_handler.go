package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/event-admission/internal/dto"
	"github.com/Eursukkul/event-admission/internal/middleware"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/Eursukkul/event-admission/internal/token"
	"github.com/labstack/echo/v4"
)

type SessionHandler struct {
	svc service.ContextService
}

func NewSessionHandler(svc service.ContextService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// RegisterRoutes mounts the session endpoints. Start, select and renew are
// reachable without an access token; the rest require one.
func (h *SessionHandler) RegisterRoutes(g *echo.Group, requireSession echo.MiddlewareFunc) {
	s := g.Group("/session")
	s.POST("/start", h.Start)
	s.POST("/select", h.Select)
	s.POST("/renew", h.Renew)
	s.POST("/switch", h.Switch, requireSession)
	s.POST("/logout", h.Logout, requireSession)
	s.GET("/events", h.ListEvents, requireSession)
}

func (h *SessionHandler) Start(c echo.Context) error {
	var req dto.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Secret == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and secret are required")
	}

	res, err := h.svc.StartSession(c.Request().Context(), req.Email, req.Secret)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, dto.ToStartSessionResponse(res))
}

func (h *SessionHandler) Select(c echo.Context) error {
	var req dto.SelectContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PreContextToken == "" || req.EventID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "pre_context_token and event_id are required")
	}

	pair, err := h.svc.ResolveSelection(c.Request().Context(), req.PreContextToken, req.EventID)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTokenPairResponse(pair))
}

func (h *SessionHandler) Switch(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.SwitchContextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EventID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "event_id is required")
	}

	pair, err := h.svc.Switch(c.Request().Context(), sc, req.EventID)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTokenPairResponse(pair))
}

func (h *SessionHandler) Renew(c echo.Context) error {
	var req dto.RenewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RenewalToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "renewal_token is required")
	}

	pair, err := h.svc.Renew(c.Request().Context(), req.RenewalToken)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTokenPairResponse(pair))
}

func (h *SessionHandler) Logout(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.svc.Logout(c.Request().Context(), sc); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) ListEvents(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	views, err := h.svc.ListEvents(c.Request().Context(), sc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.JSON(http.StatusOK, dto.ToMembershipResponses(views))
}

func currentSession(c echo.Context) (models.SessionContext, error) {
	sc, ok := middleware.SessionFrom(c)
	if !ok {
		return models.SessionContext{}, echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	return sc, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNoMembership), errors.Is(err, service.ErrNotMember):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrTokenRevoked),
		errors.Is(err, token.ErrTokenMalformed):
		return echo.NewHTTPError(http.StatusUnauthorized, tokenMessage(err))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return token.ErrTokenExpired.Error()
	case errors.Is(err, token.ErrTokenRevoked):
		return token.ErrTokenRevoked.Error()
	}
	return token.ErrTokenMalformed.Error()
}
