package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Eursukkul/event-admission/internal/dto"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_Handler_Granted(t *testing.T) {
	entryID := uuid.New()
	svc := &mockVerificationService{
		verifyFn: func(ctx context.Context, verifier models.SessionContext, req service.VerifyRequest) (*service.VerifyResult, error) {
			assert.Equal(t, gateSession, verifier)
			assert.Equal(t, "v1.abc.def", req.Payload)
			assert.Equal(t, uint(10), req.RoomID)
			assert.Nil(t, req.ActivityID)
			return &service.VerifyResult{
				Decision:    models.DecisionGranted,
				Participant: &service.ParticipantSummary{IdentityID: 7, DisplayName: "Ada", Role: models.RoleAttendee},
				EntryID:     &entryID,
				DecidedAt:   time.Now(),
			}, nil
		},
	}

	c, rec := newJSONContext(http.MethodPost, "/api/v1/verify", `{"scanned_payload":"v1.abc.def","room_id":10}`, &gateSession)
	require.NoError(t, NewVerifyHandler(svc).Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.DecisionGranted, resp.Decision)
	assert.Equal(t, "Ada", resp.Participant.DisplayName)
	assert.Equal(t, entryID, *resp.EntryID)
}

func TestVerify_Handler_PaymentRequired(t *testing.T) {
	price := 500.0
	svc := &mockVerificationService{
		verifyFn: func(ctx context.Context, verifier models.SessionContext, req service.VerifyRequest) (*service.VerifyResult, error) {
			require.NotNil(t, req.ActivityID)
			assert.Equal(t, uint(5), *req.ActivityID)
			return &service.VerifyResult{
				Decision:      models.DecisionDenied,
				Reason:        models.ReasonPaymentRequired,
				ActivityPrice: &price,
			}, nil
		},
	}

	c, rec := newJSONContext(http.MethodPost, "/api/v1/verify", `{"scanned_payload":"p","room_id":10,"activity_id":5}`, &gateSession)
	require.NoError(t, NewVerifyHandler(svc).Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.ReasonPaymentRequired, resp.Reason)
	assert.Equal(t, models.ReasonPaymentRequired.Message(), resp.ReasonMessage)
	assert.Equal(t, 500.0, *resp.ActivityPrice)
}

func TestVerify_Handler_InvalidPayload(t *testing.T) {
	svc := &mockVerificationService{
		verifyFn: func(ctx context.Context, verifier models.SessionContext, req service.VerifyRequest) (*service.VerifyResult, error) {
			return &service.VerifyResult{Decision: models.DecisionInvalid}, nil
		},
	}

	c, rec := newJSONContext(http.MethodPost, "/api/v1/verify", `{"scanned_payload":"junk","room_id":10}`, &gateSession)
	require.NoError(t, NewVerifyHandler(svc).Verify(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp dto.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.DecisionInvalid, resp.Decision)
	assert.Nil(t, resp.EntryID)
}

func TestVerify_Handler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "missing room", body: `{"scanned_payload":"p"}`, wantCode: http.StatusBadRequest},
		{name: "not a verifier", body: `{"scanned_payload":"p","room_id":1}`, err: service.ErrNotVerifier, wantCode: http.StatusForbidden},
		{name: "room outside context", body: `{"scanned_payload":"p","room_id":1}`, err: service.ErrRoomOutsideContext, wantCode: http.StatusForbidden},
		{name: "room not assigned", body: `{"scanned_payload":"p","room_id":1}`, err: service.ErrRoomNotAssigned, wantCode: http.StatusForbidden},
		{name: "room not found", body: `{"scanned_payload":"p","room_id":1}`, err: service.ErrRoomNotFound, wantCode: http.StatusNotFound},
		{name: "activity not found", body: `{"scanned_payload":"p","room_id":1,"activity_id":3}`, err: service.ErrActivityNotFound, wantCode: http.StatusNotFound},
		{name: "activity elsewhere", body: `{"scanned_payload":"p","room_id":1,"activity_id":3}`, err: service.ErrActivityRoomMismatch, wantCode: http.StatusConflict},
		{name: "ledger write failed", body: `{"scanned_payload":"p","room_id":1}`, err: errors.New("record access decision: timeout"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockVerificationService{
				verifyFn: func(ctx context.Context, verifier models.SessionContext, req service.VerifyRequest) (*service.VerifyResult, error) {
					return nil, tt.err
				},
			}
			c, rec := newJSONContext(http.MethodPost, "/api/v1/verify", tt.body, &gateSession)
			err := NewVerifyHandler(svc).Verify(c)

			he, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, he.Code)
			assert.Empty(t, rec.Body.String())
		})
	}
}
