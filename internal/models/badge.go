package models

import (
	"time"

	"github.com/google/uuid"
)

// Badge is the per-event scannable credential of an attendee or exhibitor.
// Payload is the encoded string printed on the physical badge.
type Badge struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID  uint       `gorm:"not null;uniqueIndex:idx_badge_identity_event" json:"identity_id"`
	EventID     uint       `gorm:"not null;uniqueIndex:idx_badge_identity_event" json:"event_id"`
	Payload     string     `gorm:"not null" json:"payload"`
	CheckedIn   bool       `gorm:"not null;default:false" json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
