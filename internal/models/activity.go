package models

import (
	"time"

	"github.com/google/uuid"
)

type Activity struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	RoomID    *uint     `json:"room_id,omitempty"`
	Title     string    `gorm:"not null" json:"title"`
	Price     float64   `gorm:"not null;default:0" json:"price"`
	IsPaid    bool      `gorm:"not null;default:false" json:"is_paid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFree    PaymentStatus = "free"
)

// ActivityAccess is the grant consulted for payment gating.
type ActivityAccess struct {
	BadgeID       uuid.UUID     `gorm:"type:uuid;primaryKey" json:"badge_id"`
	ActivityID    uint          `gorm:"primaryKey;autoIncrement:false" json:"activity_id"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	HasAccess     bool          `gorm:"not null;default:false" json:"has_access"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
