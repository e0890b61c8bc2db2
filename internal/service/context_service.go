package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/Eursukkul/event-admission/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or secret")
	ErrNoMembership       = errors.New("identity has no active event membership")
	ErrNotMember          = errors.New("identity is not an active member of this event")
)

// TokenPair is a committed session: an access token scoped to one context
// and the single-use renewal token issued alongside it.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RenewalToken     string
	RenewalExpiresAt time.Time
	Context          models.SessionContext
}

type Candidate struct {
	EventID   uint
	EventName string
	Role      models.Role
}

// StartResult is either a committed Session or, for identities with more
// than one active membership, the candidates plus a pre-context token.
type StartResult struct {
	Session             *TokenPair
	Ambiguous           bool
	Candidates          []Candidate
	PreContextToken     string
	PreContextExpiresAt time.Time
}

type MembershipView struct {
	EventID        uint
	EventName      string
	Role           models.Role
	AssignedRoomID *uint
	IsCurrent      bool
}

type ContextService interface {
	StartSession(ctx context.Context, email, secret string) (*StartResult, error)
	ResolveInitial(ctx context.Context, identityID uint) (*StartResult, error)
	ResolveSelection(ctx context.Context, preContextToken string, eventID uint) (*TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (models.SessionContext, error)
	Switch(ctx context.Context, sc models.SessionContext, eventID uint) (*TokenPair, error)
	Renew(ctx context.Context, renewalToken string) (*TokenPair, error)
	Logout(ctx context.Context, sc models.SessionContext) error
	ListEvents(ctx context.Context, sc models.SessionContext) ([]MembershipView, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type contextService struct {
	identities  repository.IdentityRepository
	memberships repository.MembershipRepository
	tokens      repository.TokenRepository
	issuer      *token.Issuer
	logger      *slog.Logger
}

func NewContextService(
	identities repository.IdentityRepository,
	memberships repository.MembershipRepository,
	tokens repository.TokenRepository,
	issuer *token.Issuer,
	logger *slog.Logger,
) ContextService {
	return &contextService{
		identities:  identities,
		memberships: memberships,
		tokens:      tokens,
		issuer:      issuer,
		logger:      resolveLogger(logger),
	}
}

func (s *contextService) StartSession(ctx context.Context, email, secret string) (*StartResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.ResolveInitial(ctx, identity.ID)
}

func (s *contextService) ResolveInitial(ctx context.Context, identityID uint) (*StartResult, error) {
	memberships, err := s.memberships.FindActiveByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	switch len(memberships) {
	case 0:
		return nil, ErrNoMembership
	case 1:
		m := memberships[0]
		pair, err := s.issuePair(ctx, identityID, m.EventID, m.Role, uuid.New())
		if err != nil {
			return nil, err
		}
		return &StartResult{Session: pair}, nil
	}

	pre, err := s.issuer.IssuePreContext(identityID)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, len(memberships))
	for i, m := range memberships {
		candidates[i] = Candidate{EventID: m.EventID, Role: m.Role}
		if m.Event != nil {
			candidates[i].EventName = m.Event.Name
		}
	}
	return &StartResult{
		Ambiguous:           true,
		Candidates:          candidates,
		PreContextToken:     pre.Token,
		PreContextExpiresAt: pre.ExpiresAt,
	}, nil
}

func (s *contextService) ResolveSelection(ctx context.Context, preContextToken string, eventID uint) (*TokenPair, error) {
	claims, err := s.issuer.Parse(preContextToken, token.KindPreContext)
	if err != nil {
		return nil, err
	}
	identityID, err := claims.IdentityID()
	if err != nil {
		return nil, err
	}

	m, err := s.activeMembership(ctx, identityID, eventID)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, identityID, m.EventID, m.Role, uuid.New())
}

// Authenticate turns an access token into its session context. Any failure,
// including an unreachable revocation store, yields no context.
func (s *contextService) Authenticate(ctx context.Context, accessToken string) (models.SessionContext, error) {
	claims, err := s.issuer.Parse(accessToken, token.KindAccess)
	if err != nil {
		return models.SessionContext{}, err
	}
	sc, err := claims.Context()
	if err != nil {
		return models.SessionContext{}, err
	}

	revoked, err := s.tokens.IsAccessRevoked(ctx, sc.TokenID)
	if err != nil {
		return models.SessionContext{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return models.SessionContext{}, token.ErrTokenRevoked
	}
	if err := ctx.Err(); err != nil {
		return models.SessionContext{}, err
	}
	return sc, nil
}

// Switch moves the caller into another event without re-presenting
// credentials. The previous access token and renewal family are revoked
// only once the target membership is confirmed.
func (s *contextService) Switch(ctx context.Context, sc models.SessionContext, eventID uint) (*TokenPair, error) {
	m, err := s.activeMembership(ctx, sc.IdentityID, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.revokeSession(ctx, sc); err != nil {
		return nil, err
	}

	s.logger.Info("session context switched",
		"identity_id", sc.IdentityID,
		"from_event_id", sc.EventID,
		"to_event_id", m.EventID,
		"role", m.Role,
	)
	return s.issuePair(ctx, sc.IdentityID, m.EventID, m.Role, uuid.New())
}

func (s *contextService) Renew(ctx context.Context, renewalToken string) (*TokenPair, error) {
	claims, err := s.issuer.Parse(renewalToken, token.KindRenewal)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, token.ErrTokenMalformed
	}

	rec, err := s.tokens.FindRenewal(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, token.ErrTokenRevoked
		}
		return nil, fmt.Errorf("find renewal token: %w", err)
	}
	if rec.RevokedAt != nil {
		return nil, token.ErrTokenRevoked
	}

	now := s.issuer.Now()
	consumed := false
	if rec.UsedAt == nil {
		if consumed, err = s.tokens.ConsumeRenewal(ctx, rec.ID, now); err != nil {
			return nil, fmt.Errorf("consume renewal token: %w", err)
		}
	}
	if !consumed {
		// replayed token: the whole lineage is treated as stolen
		if err := s.tokens.RevokeFamily(ctx, rec.FamilyID, now); err != nil {
			return nil, fmt.Errorf("revoke renewal family: %w", err)
		}
		s.logger.Warn("renewal token replay detected, family revoked",
			"identity_id", rec.IdentityID,
			"family_id", rec.FamilyID,
		)
		return nil, token.ErrTokenRevoked
	}

	m, err := s.activeMembership(ctx, rec.IdentityID, rec.EventID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			if rerr := s.tokens.RevokeFamily(ctx, rec.FamilyID, now); rerr != nil {
				return nil, fmt.Errorf("revoke renewal family: %w", rerr)
			}
		}
		return nil, err
	}
	return s.issuePair(ctx, rec.IdentityID, m.EventID, m.Role, rec.FamilyID)
}

func (s *contextService) Logout(ctx context.Context, sc models.SessionContext) error {
	if err := s.revokeSession(ctx, sc); err != nil {
		return err
	}
	s.logger.Info("session logged out", "identity_id", sc.IdentityID, "event_id", sc.EventID)
	return nil
}

func (s *contextService) ListEvents(ctx context.Context, sc models.SessionContext) ([]MembershipView, error) {
	memberships, err := s.memberships.FindActiveByIdentity(ctx, sc.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	views := make([]MembershipView, len(memberships))
	for i, m := range memberships {
		views[i] = MembershipView{
			EventID:        m.EventID,
			Role:           m.Role,
			AssignedRoomID: m.AssignedRoomID,
			IsCurrent:      m.EventID == sc.EventID,
		}
		if m.Event != nil {
			views[i].EventName = m.Event.Name
		}
	}
	return views, nil
}

func (s *contextService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.PurgeExpired(ctx, s.issuer.Now())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return n, nil
}

func (s *contextService) activeMembership(ctx context.Context, identityID, eventID uint) (*models.Membership, error) {
	if eventID == 0 {
		return nil, ErrNotMember
	}
	m, err := s.memberships.FindActive(ctx, identityID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return m, nil
}

func (s *contextService) revokeSession(ctx context.Context, sc models.SessionContext) error {
	if err := s.tokens.RevokeAccess(ctx, sc.TokenID, sc.ExpiresAt); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	family, err := uuid.Parse(sc.FamilyID)
	if err != nil {
		return token.ErrTokenMalformed
	}
	if err := s.tokens.RevokeFamily(ctx, family, s.issuer.Now()); err != nil {
		return fmt.Errorf("revoke renewal family: %w", err)
	}
	return nil
}

func (s *contextService) issuePair(ctx context.Context, identityID, eventID uint, role models.Role, family uuid.UUID) (*TokenPair, error) {
	rec := &models.RenewalToken{
		ID:         uuid.New(),
		FamilyID:   family,
		IdentityID: identityID,
		EventID:    eventID,
		Role:       role,
		ExpiresAt:  s.issuer.Now().Add(s.issuer.RenewalTTL()),
	}
	if err := s.tokens.CreateRenewal(ctx, rec); err != nil {
		return nil, fmt.Errorf("store renewal token: %w", err)
	}
	renewal, err := s.issuer.IssueRenewal(rec)
	if err != nil {
		return nil, err
	}
	access, err := s.issuer.IssueAccess(identityID, eventID, role, family)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RenewalToken:     renewal.Token,
		RenewalExpiresAt: renewal.ExpiresAt,
		Context: models.SessionContext{
			IdentityID: identityID,
			EventID:    eventID,
			Role:       role,
			TokenID:    access.ID,
			FamilyID:   family.String(),
			IssuedAt:   s.issuer.Now(),
			ExpiresAt:  access.ExpiresAt,
		},
	}, nil
}
