package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/event-admission/internal/dto"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/labstack/echo/v4"
)

type VerifyHandler struct {
	svc service.VerificationService
}

func NewVerifyHandler(svc service.VerificationService) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

func (h *VerifyHandler) RegisterRoutes(g *echo.Group, requireSession echo.MiddlewareFunc) {
	g.POST("/verify", h.Verify, requireSession)
}

// Verify answers 200 for granted and denied scans alike; the decision is in
// the body. Unresolvable payloads get 422.
func (h *VerifyHandler) Verify(c echo.Context) error {
	sc, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RoomID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "room_id is required")
	}

	res, err := h.svc.Verify(c.Request().Context(), sc, service.VerifyRequest{
		Payload:    req.ScannedPayload,
		RoomID:     req.RoomID,
		ActivityID: req.ActivityID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotVerifier),
			errors.Is(err, service.ErrRoomOutsideContext),
			errors.Is(err, service.ErrRoomNotAssigned):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrActivityNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityRoomMismatch):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
	}

	status := http.StatusOK
	if res.Decision == models.DecisionInvalid {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, dto.ToVerifyResponse(res))
}
