package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedRoomRepository is a read-through cache over room access rules.
// Entries expire after the TTL; writes through Upsert invalidate eagerly.
// Misses and errors are never cached.
type CachedRoomRepository struct {
	next  RoomRepository
	cache *expirable.LRU[uint, *models.RoomAccessRules]
}

func NewCachedRoomRepository(next RoomRepository, size int, ttl time.Duration) *CachedRoomRepository {
	return &CachedRoomRepository{
		next:  next,
		cache: expirable.NewLRU[uint, *models.RoomAccessRules](size, nil, ttl),
	}
}

func (r *CachedRoomRepository) FindAccessRules(ctx context.Context, roomID uint) (*models.RoomAccessRules, error) {
	if rules, ok := r.cache.Get(roomID); ok {
		return rules, nil
	}
	rules, err := r.next.FindAccessRules(ctx, roomID)
	if err != nil {
		return nil, err
	}
	r.cache.Add(roomID, rules)
	return rules, nil
}

func (r *CachedRoomRepository) Upsert(ctx context.Context, room *models.Room, allowList []uuid.UUID) error {
	defer r.cache.Remove(room.ID)
	return r.next.Upsert(ctx, room, allowList)
}

func (r *CachedRoomRepository) Invalidate(roomID uint) {
	r.cache.Remove(roomID)
}

// CachedActivityRepository caches activity definitions. Access grants are
// payment state and always go to the store.
type CachedActivityRepository struct {
	next  ActivityRepository
	cache *expirable.LRU[uint, *models.Activity]
}

func NewCachedActivityRepository(next ActivityRepository, size int, ttl time.Duration) *CachedActivityRepository {
	return &CachedActivityRepository{
		next:  next,
		cache: expirable.NewLRU[uint, *models.Activity](size, nil, ttl),
	}
}

func (r *CachedActivityRepository) FindByID(ctx context.Context, id uint) (*models.Activity, error) {
	if activity, ok := r.cache.Get(id); ok {
		return activity, nil
	}
	activity, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, activity)
	return activity, nil
}

func (r *CachedActivityRepository) FindAccess(ctx context.Context, badgeID uuid.UUID, activityID uint) (*models.ActivityAccess, error) {
	return r.next.FindAccess(ctx, badgeID, activityID)
}

func (r *CachedActivityRepository) Upsert(ctx context.Context, activity *models.Activity) error {
	defer r.cache.Remove(activity.ID)
	return r.next.Upsert(ctx, activity)
}

func (r *CachedActivityRepository) UpsertAccess(ctx context.Context, access *models.ActivityAccess) error {
	return r.next.UpsertAccess(ctx, access)
}
