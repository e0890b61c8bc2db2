package dto

import (
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type ContextResponse struct {
	IdentityID uint        `json:"identity_id"`
	EventID    uint        `json:"event_id"`
	Role       models.Role `json:"role"`
}

type TokenPairResponse struct {
	AccessToken      string          `json:"access_token"`
	ExpiresAt        time.Time       `json:"expires_at"`
	RenewalToken     string          `json:"renewal_token"`
	RenewalExpiresAt time.Time       `json:"renewal_expires_at"`
	Context          ContextResponse `json:"context"`
}

type CandidateResponse struct {
	EventID   uint        `json:"event_id"`
	EventName string      `json:"event_name"`
	Role      models.Role `json:"role"`
}

// StartSessionResponse carries either the token pair or, when the identity
// has several memberships, the candidates to choose from.
type StartSessionResponse struct {
	*TokenPairResponse
	Ambiguous           bool                `json:"ambiguous,omitempty"`
	Candidates          []CandidateResponse `json:"candidates,omitempty"`
	PreContextToken     string              `json:"pre_context_token,omitempty"`
	PreContextExpiresAt *time.Time          `json:"pre_context_expires_at,omitempty"`
}

type MembershipResponse struct {
	EventID        uint        `json:"event_id"`
	EventName      string      `json:"event_name"`
	Role           models.Role `json:"role"`
	AssignedRoomID *uint       `json:"assigned_room_id,omitempty"`
	IsCurrent      bool        `json:"is_current"`
}

type ParticipantResponse struct {
	IdentityID  uint        `json:"identity_id"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role,omitempty"`
	BadgeID     *uuid.UUID  `json:"badge_id,omitempty"`
	CheckedIn   bool        `json:"checked_in"`
}

type VerifyResponse struct {
	Decision        models.Decision      `json:"decision"`
	Reason          models.DenialReason  `json:"reason,omitempty"`
	ReasonMessage   string               `json:"reason_message,omitempty"`
	Participant     *ParticipantResponse `json:"participant_summary,omitempty"`
	ActivityPrice   *float64             `json:"activity_price,omitempty"`
	RecentDuplicate bool                 `json:"recent_duplicate,omitempty"`
	EntryID         *uuid.UUID           `json:"entry_id,omitempty"`
	DecidedAt       time.Time            `json:"decided_at"`
}

type LedgerStatsResponse struct {
	EventID              uint                       `json:"event_id"`
	From                 *time.Time                 `json:"from,omitempty"`
	To                   *time.Time                 `json:"to,omitempty"`
	ByRoom               []repository.RoomCount     `json:"by_room"`
	ByDay                []repository.DayCount      `json:"by_day"`
	ByDecision           []repository.DecisionCount `json:"by_decision"`
	DistinctParticipants int64                      `json:"distinct_participants"`
}

type AdmissionsResponse struct {
	RoomID   uint   `json:"room_id"`
	RoomName string `json:"room_name"`
	Capacity int    `json:"capacity"`
	Day      string `json:"day"`
	Count    int64  `json:"count"`
}

type AccessLogResponse struct {
	ID            uuid.UUID           `json:"id"`
	BadgeID       *uuid.UUID          `json:"badge_id,omitempty"`
	IdentityID    uint                `json:"identity_id"`
	RoomID        uint                `json:"room_id"`
	ActivityID    *uint               `json:"activity_id,omitempty"`
	Decision      models.Decision     `json:"decision"`
	Reason        models.DenialReason `json:"reason,omitempty"`
	ReasonMessage string              `json:"reason_message,omitempty"`
	VerifierID    uint                `json:"verifier_id"`
	CreatedAt     time.Time           `json:"created_at"`
}

func ToTokenPairResponse(p *service.TokenPair) *TokenPairResponse {
	return &TokenPairResponse{
		AccessToken:      p.AccessToken,
		ExpiresAt:        p.AccessExpiresAt,
		RenewalToken:     p.RenewalToken,
		RenewalExpiresAt: p.RenewalExpiresAt,
		Context: ContextResponse{
			IdentityID: p.Context.IdentityID,
			EventID:    p.Context.EventID,
			Role:       p.Context.Role,
		},
	}
}

func ToStartSessionResponse(r *service.StartResult) StartSessionResponse {
	if r.Session != nil {
		return StartSessionResponse{TokenPairResponse: ToTokenPairResponse(r.Session)}
	}
	candidates := make([]CandidateResponse, len(r.Candidates))
	for i, c := range r.Candidates {
		candidates[i] = CandidateResponse{EventID: c.EventID, EventName: c.EventName, Role: c.Role}
	}
	exp := r.PreContextExpiresAt
	return StartSessionResponse{
		Ambiguous:           true,
		Candidates:          candidates,
		PreContextToken:     r.PreContextToken,
		PreContextExpiresAt: &exp,
	}
}

func ToMembershipResponses(views []service.MembershipView) []MembershipResponse {
	resp := make([]MembershipResponse, len(views))
	for i, v := range views {
		resp[i] = MembershipResponse{
			EventID:        v.EventID,
			EventName:      v.EventName,
			Role:           v.Role,
			AssignedRoomID: v.AssignedRoomID,
			IsCurrent:      v.IsCurrent,
		}
	}
	return resp
}

func ToVerifyResponse(r *service.VerifyResult) VerifyResponse {
	resp := VerifyResponse{
		Decision:        r.Decision,
		Reason:          r.Reason,
		ReasonMessage:   r.Reason.Message(),
		ActivityPrice:   r.ActivityPrice,
		RecentDuplicate: r.RecentDuplicate,
		EntryID:         r.EntryID,
		DecidedAt:       r.DecidedAt,
	}
	if p := r.Participant; p != nil {
		resp.Participant = &ParticipantResponse{
			IdentityID:  p.IdentityID,
			DisplayName: p.DisplayName,
			Role:        p.Role,
			BadgeID:     p.BadgeID,
			CheckedIn:   p.CheckedIn,
		}
	}
	return resp
}

func ToLedgerStatsResponse(s *service.LedgerStats) LedgerStatsResponse {
	resp := LedgerStatsResponse{
		EventID:              s.EventID,
		ByRoom:               s.ByRoom,
		ByDay:                s.ByDay,
		ByDecision:           s.ByDecision,
		DistinctParticipants: s.DistinctParticipants,
	}
	if !s.From.IsZero() {
		resp.From = &s.From
	}
	if !s.To.IsZero() {
		resp.To = &s.To
	}
	return resp
}

func ToAdmissionsResponse(a *service.Admissions) AdmissionsResponse {
	return AdmissionsResponse{
		RoomID:   a.RoomID,
		RoomName: a.RoomName,
		Capacity: a.Capacity,
		Day:      a.Day.Format(time.DateOnly),
		Count:    a.Count,
	}
}

func ToAccessLogResponse(e *models.AccessLog) AccessLogResponse {
	return AccessLogResponse{
		ID:            e.ID,
		BadgeID:       e.BadgeID,
		IdentityID:    e.IdentityID,
		RoomID:        e.RoomID,
		ActivityID:    e.ActivityID,
		Decision:      e.Decision,
		Reason:        e.Reason,
		ReasonMessage: e.Reason.Message(),
		VerifierID:    e.VerifierID,
		CreatedAt:     e.CreatedAt,
	}
}
