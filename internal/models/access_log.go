package models

import (
	"time"

	"github.com/google/uuid"
)

type Decision string

const (
	DecisionGranted Decision = "granted"
	DecisionDenied  Decision = "denied"
	// DecisionInvalid is returned for unresolvable payloads and is never
	// stored in the ledger.
	DecisionInvalid Decision = "invalid"
)

type DenialReason string

const (
	ReasonNone              DenialReason = ""
	ReasonNotEventMember    DenialReason = "not_event_member"
	ReasonNoBadgeForEvent   DenialReason = "no_badge_for_event"
	ReasonRoomNotAuthorized DenialReason = "room_not_authorized"
	ReasonPaymentRequired   DenialReason = "payment_required"
)

// Message is the operator guidance shown at the verifying station.
func (r DenialReason) Message() string {
	switch r {
	case ReasonNotEventMember:
		return "person is not registered for this event"
	case ReasonNoBadgeForEvent:
		return "badge was not issued for this event"
	case ReasonRoomNotAuthorized:
		return "badge is not assigned to this room"
	case ReasonPaymentRequired:
		return "activity requires payment, redirect to payment desk"
	}
	return ""
}

// AccessLog is one ledger entry. Rows are write-once.
type AccessLog struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	BadgeID    *uuid.UUID   `gorm:"type:uuid;index" json:"badge_id,omitempty"`
	IdentityID uint         `gorm:"not null;index" json:"identity_id"`
	EventID    uint         `gorm:"not null;index" json:"event_id"`
	RoomID     uint         `gorm:"not null;index" json:"room_id"`
	ActivityID *uint        `json:"activity_id,omitempty"`
	Decision   Decision     `gorm:"type:varchar(16);not null" json:"decision"`
	Reason     DenialReason `gorm:"type:varchar(32);not null;default:''" json:"reason,omitempty"`
	VerifierID uint         `gorm:"not null" json:"verifier_id"`
	CreatedAt  time.Time    `gorm:"not null;index" json:"created_at"`
}
