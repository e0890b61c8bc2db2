package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Eursukkul/event-admission/internal/badge"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// errRejected marks a message that can never be applied. It is dropped
// instead of requeued.
var errRejected = errors.New("message rejected")

type CatalogRepositories struct {
	Events      repository.EventRepository
	Identities  repository.IdentityRepository
	Memberships repository.MembershipRepository
	Badges      repository.BadgeRepository
	Rooms       repository.RoomRepository
	Activities  repository.ActivityRepository
}

// CatalogConsumer keeps the local replica of registration records in sync.
// Every message is an idempotent upsert keyed by the upstream id.
type CatalogConsumer struct {
	repos  CatalogRepositories
	codec  *badge.Codec
	logger *slog.Logger
}

func NewCatalogConsumer(repos CatalogRepositories, codec *badge.Codec, logger *slog.Logger) *CatalogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogConsumer{repos: repos, codec: codec, logger: logger.With("component", "catalog_consumer")}
}

// Start handles deliveries until msgs is closed or ctx is done. The returned
// channel is closed once the loop has exited.
func (cc *CatalogConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				cc.logger.Info("context done, stopping consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					cc.logger.Info("channel closed, stopping consumer")
					return
				}
				cc.handleMessage(ctx, msg)
			}
		}
	}()
	return done
}

func (cc *CatalogConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	err := cc.apply(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		cc.logger.Debug("catalog record synced", "routing_key", msg.RoutingKey)
		_ = msg.Ack(false)
	case errors.Is(err, errRejected):
		cc.logger.Warn("dropping catalog message", "routing_key", msg.RoutingKey, "error", err)
		_ = msg.Nack(false, false)
	default:
		cc.logger.Error("catalog upsert failed, requeueing", "routing_key", msg.RoutingKey, "error", err)
		_ = msg.Nack(false, true)
	}
}

func (cc *CatalogConsumer) apply(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case KeyEvent:
		var m EventMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		if m.ID == 0 || m.Name == "" {
			return fmt.Errorf("%w: event id and name are required", errRejected)
		}
		return cc.repos.Events.Upsert(ctx, &models.Event{
			ID: m.ID, Name: m.Name, StartsAt: m.StartsAt, EndsAt: m.EndsAt, Active: m.Active,
		})

	case KeyIdentity:
		var m IdentityMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		if m.ID == 0 || m.Email == "" || m.SecretHash == "" {
			return fmt.Errorf("%w: identity id, email and secret hash are required", errRejected)
		}
		return cc.repos.Identities.Upsert(ctx, &models.Identity{
			ID: m.ID, Email: m.Email, DisplayName: m.DisplayName, SecretHash: m.SecretHash,
		})

	case KeyMembership:
		var m MembershipMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		if m.ID == 0 || m.IdentityID == 0 || m.EventID == 0 || !m.Role.Valid() {
			return fmt.Errorf("%w: membership needs id, identity, event and a known role", errRejected)
		}
		return cc.repos.Memberships.Upsert(ctx, &models.Membership{
			ID: m.ID, IdentityID: m.IdentityID, EventID: m.EventID, Role: m.Role,
			Active: m.Active, AssignedRoomID: m.AssignedRoomID,
		})

	case KeyBadge:
		var m BadgeMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		return cc.applyBadge(ctx, m)

	case KeyRoom:
		var m RoomMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		if m.ID == 0 || m.EventID == 0 {
			return fmt.Errorf("%w: room id and event are required", errRejected)
		}
		room := &models.Room{ID: m.ID, EventID: m.EventID, Name: m.Name, Capacity: m.Capacity, Active: m.Active}
		return cc.repos.Rooms.Upsert(ctx, room, m.AllowedBadges)

	case KeyActivity:
		var m ActivityMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		if m.ID == 0 || m.EventID == 0 || m.Price < 0 {
			return fmt.Errorf("%w: activity id, event and a non-negative price are required", errRejected)
		}
		return cc.repos.Activities.Upsert(ctx, &models.Activity{
			ID: m.ID, EventID: m.EventID, RoomID: m.RoomID, Title: m.Title, Price: m.Price, IsPaid: m.IsPaid,
		})

	case KeyActivityAccess:
		var m ActivityAccessMessage
		if err := decode(body, &m); err != nil {
			return err
		}
		if m.BadgeID == uuid.Nil || m.ActivityID == 0 {
			return fmt.Errorf("%w: grant needs badge and activity", errRejected)
		}
		if m.PaymentStatus == "" {
			m.PaymentStatus = models.PaymentPending
		}
		return cc.repos.Activities.UpsertAccess(ctx, &models.ActivityAccess{
			BadgeID: m.BadgeID, ActivityID: m.ActivityID, PaymentStatus: m.PaymentStatus, HasAccess: m.HasAccess,
		})
	}
	return fmt.Errorf("%w: unknown routing key %q", errRejected, routingKey)
}

// applyBadge signs the scannable payload for a newly replicated badge.
func (cc *CatalogConsumer) applyBadge(ctx context.Context, m BadgeMessage) error {
	payload, err := cc.codec.Encode(badge.Payload{IdentityID: m.IdentityID, EventID: m.EventID, BadgeID: m.ID})
	if err != nil {
		return fmt.Errorf("%w: %v", errRejected, err)
	}
	return cc.repos.Badges.Upsert(ctx, &models.Badge{
		ID:          m.ID,
		IdentityID:  m.IdentityID,
		EventID:     m.EventID,
		Payload:     payload,
		CheckedIn:   m.CheckedIn,
		CheckedInAt: m.CheckedInAt,
	})
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errRejected, err)
	}
	return nil
}
