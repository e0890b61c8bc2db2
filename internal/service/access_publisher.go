package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
)

const (
	RoutingKeyAccessGranted = "access.granted"
	RoutingKeyAccessDenied  = "access.denied"
)

type Publisher interface {
	Publish(routingKey string, payload any) error
}

// AccessRecordedMessage is published for every stored ledger entry so that
// downstream read models (occupancy boards, statistics) can follow along.
type AccessRecordedMessage struct {
	EntryID    uuid.UUID           `json:"entry_id"`
	BadgeID    *uuid.UUID          `json:"badge_id,omitempty"`
	IdentityID uint                `json:"identity_id"`
	EventID    uint                `json:"event_id"`
	RoomID     uint                `json:"room_id"`
	ActivityID *uint               `json:"activity_id,omitempty"`
	Decision   models.Decision     `json:"decision"`
	Reason     models.DenialReason `json:"reason,omitempty"`
	VerifierID uint                `json:"verifier_id"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// AccessPublisher is a LedgerHook that forwards entries to the message
// broker. Publish failures are logged; the entry is already durable.
type AccessPublisher struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewAccessPublisher(publisher Publisher, logger *slog.Logger) *AccessPublisher {
	return &AccessPublisher{publisher: publisher, logger: resolveLogger(logger)}
}

func (p *AccessPublisher) AfterAppend(_ context.Context, entry *models.AccessLog) {
	if p.publisher == nil {
		return
	}
	key := RoutingKeyAccessDenied
	if entry.Decision == models.DecisionGranted {
		key = RoutingKeyAccessGranted
	}
	msg := AccessRecordedMessage{
		EntryID:    entry.ID,
		BadgeID:    entry.BadgeID,
		IdentityID: entry.IdentityID,
		EventID:    entry.EventID,
		RoomID:     entry.RoomID,
		ActivityID: entry.ActivityID,
		Decision:   entry.Decision,
		Reason:     entry.Reason,
		VerifierID: entry.VerifierID,
		RecordedAt: entry.CreatedAt,
	}
	if err := p.publisher.Publish(key, msg); err != nil {
		p.logger.Warn("publish access entry failed", "entry_id", entry.ID, "routing_key", key, "error", err)
	}
}
