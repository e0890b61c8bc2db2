package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Eursukkul/event-admission/internal/authz"
	"github.com/Eursukkul/event-admission/internal/badge"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotVerifier          = errors.New("role is not allowed to verify access")
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomOutsideContext   = errors.New("room does not belong to the current event")
	ErrRoomNotAssigned      = errors.New("verifier is assigned to a different room")
	ErrActivityNotFound     = errors.New("activity not found")
	ErrActivityRoomMismatch = errors.New("activity does not take place in this room")
)

type VerifyRequest struct {
	Payload    string
	RoomID     uint
	ActivityID *uint
}

type ParticipantSummary struct {
	IdentityID  uint
	DisplayName string
	Role        models.Role
	BadgeID     *uuid.UUID
	CheckedIn   bool
}

// VerifyResult is the outcome shown at the verifying station. Denials are
// results, not errors.
type VerifyResult struct {
	Decision        models.Decision
	Reason          models.DenialReason
	Participant     *ParticipantSummary
	ActivityPrice   *float64
	RecentDuplicate bool
	EntryID         *uuid.UUID
	DecidedAt       time.Time
}

type VerificationService interface {
	Verify(ctx context.Context, verifier models.SessionContext, req VerifyRequest) (*VerifyResult, error)
}

type VerificationConfig struct {
	DuplicateWindow time.Duration
	Now             func() time.Time
}

type verificationService struct {
	codec       *badge.Codec
	identities  repository.IdentityRepository
	memberships repository.MembershipRepository
	badges      repository.BadgeRepository
	rooms       repository.RoomRepository
	activities  repository.ActivityRepository
	payments    PaymentOracle
	ledger      LedgerService
	authz       Authorizer
	cfg         VerificationConfig
	logger      *slog.Logger
}

func NewVerificationService(
	codec *badge.Codec,
	identities repository.IdentityRepository,
	memberships repository.MembershipRepository,
	badges repository.BadgeRepository,
	rooms repository.RoomRepository,
	activities repository.ActivityRepository,
	payments PaymentOracle,
	ledger LedgerService,
	authorizer Authorizer,
	cfg VerificationConfig,
	logger *slog.Logger,
) VerificationService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &verificationService{
		codec:       codec,
		identities:  identities,
		memberships: memberships,
		badges:      badges,
		rooms:       rooms,
		activities:  activities,
		payments:    payments,
		ledger:      ledger,
		authz:       authorizer,
		cfg:         cfg,
		logger:      resolveLogger(logger),
	}
}

// scanTarget is the validated room and optional activity of a scan.
type scanTarget struct {
	rules    *models.RoomAccessRules
	activity *models.Activity
}

// Verify adjudicates one scan. The checks run in a fixed order and the first
// failure decides. Every scan whose payload resolves to an identity is
// recorded in the ledger before the result is returned; if that write fails
// the caller gets an error instead of a decision.
func (s *verificationService) Verify(ctx context.Context, verifier models.SessionContext, req VerifyRequest) (*VerifyResult, error) {
	target, err := s.resolveTarget(ctx, verifier, req)
	if err != nil {
		return nil, err
	}

	// 1. credential resolution
	payload, err := s.codec.Decode(req.Payload)
	if err != nil {
		s.logger.Warn("unresolvable badge payload",
			"room_id", req.RoomID,
			"verifier_id", verifier.IdentityID,
			"error", err,
		)
		return &VerifyResult{Decision: models.DecisionInvalid, DecidedAt: s.cfg.Now().UTC()}, nil
	}

	eventID := target.rules.Room.EventID
	result := &VerifyResult{Decision: models.DecisionDenied}
	entry := &models.AccessLog{
		IdentityID: payload.IdentityID,
		EventID:    eventID,
		RoomID:     target.rules.Room.ID,
		ActivityID: req.ActivityID,
		VerifierID: verifier.IdentityID,
	}

	summary, err := s.participantSummary(ctx, payload.IdentityID)
	if err != nil {
		return nil, err
	}
	result.Participant = summary

	result.Reason, err = s.decide(ctx, payload, target, result, entry)
	if err != nil {
		return nil, err
	}
	if result.Reason == models.ReasonNone {
		result.Decision = models.DecisionGranted
		result.RecentDuplicate = s.recentlyGranted(ctx, *entry.BadgeID, entry.RoomID)
	}

	entry.Decision = result.Decision
	entry.Reason = result.Reason
	entry.ID = uuid.New()
	entry.CreatedAt = s.cfg.Now().UTC()
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("record access decision: %w", err)
	}

	result.EntryID = &entry.ID
	result.DecidedAt = entry.CreatedAt

	s.logger.Info("access verified",
		"entry_id", entry.ID,
		"identity_id", entry.IdentityID,
		"room_id", entry.RoomID,
		"decision", entry.Decision,
		"reason", entry.Reason,
		"verifier_id", entry.VerifierID,
	)
	return result, nil
}

// decide runs checks 2 to 5 and returns the first denial reason, or
// ReasonNone when all pass. It fills the entry's badge and the result's
// price as they become known.
func (s *verificationService) decide(ctx context.Context, payload badge.Payload, target scanTarget, result *VerifyResult, entry *models.AccessLog) (models.DenialReason, error) {
	eventID := target.rules.Room.EventID

	// 2. event membership
	membership, err := s.memberships.FindActive(ctx, payload.IdentityID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ReasonNotEventMember, nil
		}
		return models.ReasonNone, fmt.Errorf("find membership: %w", err)
	}
	if result.Participant != nil {
		result.Participant.Role = membership.Role
	}

	// 3. badge issued for this event, and it is the one scanned
	b, err := s.badges.FindByIdentityAndEvent(ctx, payload.IdentityID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ReasonNoBadgeForEvent, nil
		}
		return models.ReasonNone, fmt.Errorf("find badge: %w", err)
	}
	if payload.EventID != eventID || b.ID != payload.BadgeID {
		return models.ReasonNoBadgeForEvent, nil
	}
	entry.BadgeID = &b.ID
	if result.Participant != nil {
		result.Participant.BadgeID = &b.ID
		result.Participant.CheckedIn = b.CheckedIn
	}

	// 4. room allow-list
	if !target.rules.Allows(b.ID) {
		return models.ReasonRoomNotAuthorized, nil
	}

	// 5. payment gating
	if target.activity != nil && target.activity.IsPaid {
		ok, err := s.payments.HasAccess(ctx, b.ID, target.activity.ID)
		if err != nil {
			return models.ReasonNone, fmt.Errorf("check payment: %w", err)
		}
		if !ok {
			price := target.activity.Price
			result.ActivityPrice = &price
			return models.ReasonPaymentRequired, nil
		}
	}

	return models.ReasonNone, nil
}

// resolveTarget checks everything about the verifier and the scan location.
// Failures here are request errors and never reach the ledger.
func (s *verificationService) resolveTarget(ctx context.Context, verifier models.SessionContext, req VerifyRequest) (scanTarget, error) {
	if !s.authz.Allowed(verifier.Role, authz.ObjectAccess, authz.ActionVerify) {
		return scanTarget{}, ErrNotVerifier
	}

	rules, err := s.rooms.FindAccessRules(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scanTarget{}, ErrRoomNotFound
		}
		return scanTarget{}, fmt.Errorf("find room: %w", err)
	}
	if rules.Room.EventID != verifier.EventID {
		return scanTarget{}, ErrRoomOutsideContext
	}

	if verifier.Role == models.RoleRoomManager {
		m, err := s.memberships.FindActive(ctx, verifier.IdentityID, verifier.EventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return scanTarget{}, ErrNotVerifier
			}
			return scanTarget{}, fmt.Errorf("find verifier membership: %w", err)
		}
		if m.AssignedRoomID != nil && *m.AssignedRoomID != rules.Room.ID {
			return scanTarget{}, ErrRoomNotAssigned
		}
	}

	target := scanTarget{rules: rules}
	if req.ActivityID == nil {
		return target, nil
	}

	activity, err := s.activities.FindByID(ctx, *req.ActivityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scanTarget{}, ErrActivityNotFound
		}
		return scanTarget{}, fmt.Errorf("find activity: %w", err)
	}
	if activity.EventID != rules.Room.EventID {
		return scanTarget{}, ErrActivityNotFound
	}
	if activity.RoomID != nil && *activity.RoomID != rules.Room.ID {
		return scanTarget{}, ErrActivityRoomMismatch
	}
	target.activity = activity
	return target, nil
}

func (s *verificationService) participantSummary(ctx context.Context, identityID uint) (*ParticipantSummary, error) {
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &ParticipantSummary{IdentityID: identity.ID, DisplayName: identity.DisplayName}, nil
}

// recentlyGranted is informational only; a lookup failure is logged and
// reported as no duplicate.
func (s *verificationService) recentlyGranted(ctx context.Context, badgeID uuid.UUID, roomID uint) bool {
	if s.cfg.DuplicateWindow <= 0 {
		return false
	}
	dup, err := s.ledger.RecentlyGranted(ctx, badgeID, roomID, s.cfg.Now().Add(-s.cfg.DuplicateWindow))
	if err != nil {
		s.logger.Warn("duplicate lookup failed", "badge_id", badgeID, "room_id", roomID, "error", err)
		return false
	}
	return dup
}
