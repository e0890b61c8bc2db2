package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionContext is the resolved (identity, event, role) triple a request
// acts under. It is rebuilt from the access token on every request and
// passed explicitly to the services.
type SessionContext struct {
	IdentityID uint
	EventID    uint
	Role       Role
	TokenID    string
	FamilyID   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// RenewalToken tracks a single-use renewal token. Tokens issued from one
// login share a FamilyID so a replayed token can revoke its whole lineage.
type RenewalToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FamilyID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"family_id"`
	IdentityID uint       `gorm:"not null;index" json:"identity_id"`
	EventID    uint       `gorm:"not null" json:"event_id"`
	Role       Role       `gorm:"type:varchar(32);not null" json:"role"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RevokedToken denylists an access token jti until it would expire anyway.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey" json:"jti"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
