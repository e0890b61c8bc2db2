package models

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	Name      string    `gorm:"not null" json:"name"`
	Capacity  int       `gorm:"not null;default:0" json:"capacity"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AllowedBadges []RoomAllowedBadge `gorm:"foreignKey:RoomID" json:"allowed_badges,omitempty"`
}

// RoomAllowedBadge is one allow-list row. A room without rows is open to
// every member of its event.
type RoomAllowedBadge struct {
	RoomID  uint      `gorm:"primaryKey;autoIncrement:false" json:"room_id"`
	BadgeID uuid.UUID `gorm:"type:uuid;primaryKey" json:"badge_id"`
}

// RoomAccessRules is the read model the verification engine needs for a room.
type RoomAccessRules struct {
	Room      Room
	AllowList map[uuid.UUID]struct{}
}

func (r *RoomAccessRules) Restricted() bool {
	return len(r.AllowList) > 0
}

func (r *RoomAccessRules) Allows(badgeID uuid.UUID) bool {
	if !r.Restricted() {
		return true
	}
	_, ok := r.AllowList[badgeID]
	return ok
}
