package consumer

import (
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
)

const (
	KeyEvent          = "catalog.event"
	KeyIdentity       = "catalog.identity"
	KeyMembership     = "catalog.membership"
	KeyBadge          = "catalog.badge"
	KeyRoom           = "catalog.room"
	KeyActivity       = "catalog.activity"
	KeyActivityAccess = "catalog.activity_access"
)

type EventMessage struct {
	ID       uint      `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Active   bool      `json:"active"`
}

// IdentityMessage carries the bcrypt hash of the scan secret, never the
// secret itself.
type IdentityMessage struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	SecretHash  string `json:"secret_hash"`
}

type MembershipMessage struct {
	ID             uint        `json:"id"`
	IdentityID     uint        `json:"identity_id"`
	EventID        uint        `json:"event_id"`
	Role           models.Role `json:"role"`
	Active         bool        `json:"active"`
	AssignedRoomID *uint       `json:"assigned_room_id,omitempty"`
}

type BadgeMessage struct {
	ID          uuid.UUID  `json:"id"`
	IdentityID  uint       `json:"identity_id"`
	EventID     uint       `json:"event_id"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// RoomMessage replaces the room's allow-list wholesale.
type RoomMessage struct {
	ID            uint        `json:"id"`
	EventID       uint        `json:"event_id"`
	Name          string      `json:"name"`
	Capacity      int         `json:"capacity"`
	Active        bool        `json:"active"`
	AllowedBadges []uuid.UUID `json:"allowed_badges"`
}

type ActivityMessage struct {
	ID      uint    `json:"id"`
	EventID uint    `json:"event_id"`
	RoomID  *uint   `json:"room_id,omitempty"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	IsPaid  bool    `json:"is_paid"`
}

type ActivityAccessMessage struct {
	BadgeID       uuid.UUID            `json:"badge_id"`
	ActivityID    uint                 `json:"activity_id"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	HasAccess     bool                 `json:"has_access"`
}
