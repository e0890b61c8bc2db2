package models

import "time"

type Role string

const (
	RoleOrganizer       Role = "organizer"
	RoleRoomManager     Role = "room-manager"
	RoleBadgeController Role = "badge-controller"
	RoleAttendee        Role = "attendee"
	RoleExhibitor       Role = "exhibitor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleRoomManager, RoleBadgeController, RoleAttendee, RoleExhibitor:
		return true
	}
	return false
}

// IsStaff reports whether the role works the event rather than attends it.
func (r Role) IsStaff() bool {
	return r == RoleOrganizer || r == RoleRoomManager || r == RoleBadgeController
}

// Membership is a person's role within one event. Rows are deactivated,
// never deleted, so ledger history keeps resolving.
type Membership struct {
	ID             uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	IdentityID     uint      `gorm:"not null;uniqueIndex:idx_membership_identity_event" json:"identity_id"`
	EventID        uint      `gorm:"not null;uniqueIndex:idx_membership_identity_event;index" json:"event_id"`
	Role           Role      `gorm:"type:varchar(32);not null" json:"role"`
	Active         bool      `gorm:"not null" json:"active"`
	AssignedRoomID *uint     `json:"assigned_room_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}
