package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Eursukkul/event-admission/internal/dto"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type LedgerHandler struct {
	svc service.LedgerService
	now func() time.Time
}

func NewLedgerHandler(svc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc, now: time.Now}
}

func (h *LedgerHandler) RegisterRoutes(g *echo.Group, requireSession echo.MiddlewareFunc) {
	l := g.Group("/ledger", requireSession)
	l.GET("/stats", h.Stats)
	l.GET("/rooms/:id/occupancy", h.Occupancy)
	l.GET("/badges/:badge_id", h.BadgeHistory)
}

func (h *LedgerHandler) Stats(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	from, err := parseTimeParam(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from")
	}
	to, err := parseTimeParam(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to")
	}

	stats, err := h.svc.Stats(c.Request().Context(), sc, from, to)
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, dto.ToLedgerStatsResponse(stats))
}

func (h *LedgerHandler) Occupancy(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}

	day := h.now().UTC()
	if s := c.QueryParam("day"); s != "" {
		if day, err = time.Parse(time.DateOnly, s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "day must be YYYY-MM-DD")
		}
	}

	adm, err := h.svc.AdmissionsOn(c.Request().Context(), sc, uint(roomID), day)
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, dto.ToAdmissionsResponse(adm))
}

func (h *LedgerHandler) BadgeHistory(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	badgeID, err := uuid.Parse(c.Param("badge_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid badge id")
	}

	entries, err := h.svc.BadgeHistory(c.Request().Context(), sc, badgeID)
	if err != nil {
		return ledgerError(err)
	}
	resp := make([]dto.AccessLogResponse, len(entries))
	for i := range entries {
		resp[i] = dto.ToAccessLogResponse(&entries[i])
	}
	return c.JSON(http.StatusOK, resp)
}

// parseTimeParam accepts RFC 3339 timestamps or plain dates; empty means
// unbounded.
func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrRoomOutsideContext):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRoomNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}
