// Package token signs and parses the JWTs that carry a session context
// across request boundaries.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Eursukkul/event-admission/internal/models"
)

type Kind string

const (
	KindAccess     Kind = "access"
	KindPreContext Kind = "pre_context"
	KindRenewal    Kind = "renewal"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenRevoked   = errors.New("token revoked")
)

// Claims is the wire form of every token this service issues. EventID,
// Role and FamilyID are empty on pre-context tokens.
type Claims struct {
	jwt.RegisteredClaims
	EventID  uint        `json:"eid,omitempty"`
	Role     models.Role `json:"role,omitempty"`
	Kind     Kind        `json:"kind"`
	FamilyID string      `json:"fam,omitempty"`
}

func (c *Claims) IdentityID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenMalformed
	}
	return uint(id), nil
}

// Context converts access claims to the session context they embed.
func (c *Claims) Context() (models.SessionContext, error) {
	identityID, err := c.IdentityID()
	if err != nil {
		return models.SessionContext{}, err
	}
	if c.Kind != KindAccess || c.EventID == 0 || !c.Role.Valid() {
		return models.SessionContext{}, ErrTokenMalformed
	}
	if c.FamilyID == "" {
		return models.SessionContext{}, ErrTokenMalformed
	}
	sc := models.SessionContext{
		IdentityID: identityID,
		EventID:    c.EventID,
		Role:       c.Role,
		TokenID:    c.ID,
		FamilyID:   c.FamilyID,
	}
	if c.IssuedAt != nil {
		sc.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		sc.ExpiresAt = c.ExpiresAt.Time
	}
	return sc, nil
}

type IssuerConfig struct {
	Secret        []byte
	Issuer        string
	AccessTTL     time.Duration
	RenewalTTL    time.Duration
	PreContextTTL time.Duration
	Now           func() time.Time
}

type Issuer struct {
	cfg IssuerConfig
}

func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("token secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RenewalTTL <= 0 || cfg.PreContextTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{cfg: cfg}, nil
}

func (i *Issuer) Now() time.Time { return i.cfg.Now() }

func (i *Issuer) RenewalTTL() time.Duration { return i.cfg.RenewalTTL }

// Signed is a token string with the identifiers the caller needs to track it.
type Signed struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// IssueAccess signs an access token bound to the renewal family it was
// issued alongside, so revoking the session can find its renewal tokens.
func (i *Issuer) IssueAccess(identityID, eventID uint, role models.Role, familyID uuid.UUID) (Signed, error) {
	return i.sign(Claims{
		EventID:  eventID,
		Role:     role,
		Kind:     KindAccess,
		FamilyID: familyID.String(),
	}, identityID, uuid.NewString(), i.cfg.AccessTTL)
}

func (i *Issuer) IssuePreContext(identityID uint) (Signed, error) {
	return i.sign(Claims{Kind: KindPreContext}, identityID, uuid.NewString(), i.cfg.PreContextTTL)
}

// IssueRenewal signs the renewal token backing a server-side record; jti and
// family come from that record.
func (i *Issuer) IssueRenewal(rec *models.RenewalToken) (Signed, error) {
	ttl := rec.ExpiresAt.Sub(i.cfg.Now())
	if ttl <= 0 {
		return Signed{}, fmt.Errorf("renewal token record already expired")
	}
	return i.sign(Claims{
		EventID:  rec.EventID,
		Role:     rec.Role,
		Kind:     KindRenewal,
		FamilyID: rec.FamilyID.String(),
	}, rec.IdentityID, rec.ID.String(), ttl)
}

func (i *Issuer) sign(claims Claims, identityID uint, jti string, ttl time.Duration) (Signed, error) {
	now := i.cfg.Now()
	exp := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Subject:   strconv.FormatUint(uint64(identityID), 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return Signed{}, fmt.Errorf("sign %s token: %w", claims.Kind, err)
	}
	return Signed{Token: s, ID: jti, ExpiresAt: exp}, nil
}

// Parse verifies signature, issuer, lifetime and kind. It never consults
// revocation state; callers that need it check the returned jti.
func (i *Issuer) Parse(raw string, want Kind) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMalformed
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.cfg.Now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if claims.Kind != want || claims.ID == "" {
		return nil, ErrTokenMalformed
	}
	if _, err := claims.IdentityID(); err != nil {
		return nil, err
	}
	return &claims, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
}
