package models

import "time"

// Identity is a person's durable account, independent of any event.
// SecretHash is the bcrypt hash of the person's single scan secret.
type Identity struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email       string    `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	SecretHash  string    `gorm:"not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
