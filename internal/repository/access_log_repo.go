package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomCount struct {
	RoomID uint  `json:"room_id"`
	Count  int64 `json:"count"`
}

type DayCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type DecisionCount struct {
	Decision models.Decision `json:"decision"`
	Count    int64           `json:"count"`
}

// LedgerFilter scopes aggregations to one event and a half-open time range.
// Zero From/To leave that side unbounded.
type LedgerFilter struct {
	EventID uint
	From    time.Time
	To      time.Time
}

// AccessLogRepository is the append-only ledger: entries are created and
// aggregated, never updated or deleted.
type AccessLogRepository interface {
	Create(ctx context.Context, entry *models.AccessLog) error
	CountByRoom(ctx context.Context, f LedgerFilter) ([]RoomCount, error)
	CountByDay(ctx context.Context, f LedgerFilter) ([]DayCount, error)
	CountByDecision(ctx context.Context, f LedgerFilter) ([]DecisionCount, error)
	CountDistinctParticipants(ctx context.Context, f LedgerFilter) (int64, error)
	// CountGrantedBadges counts distinct badges granted in a room within [from, to).
	CountGrantedBadges(ctx context.Context, roomID uint, from, to time.Time) (int64, error)
	ExistsGrantedSince(ctx context.Context, badgeID uuid.UUID, roomID uint, since time.Time) (bool, error)
	FindByBadge(ctx context.Context, eventID uint, badgeID uuid.UUID, limit int) ([]models.AccessLog, error)
}

type accessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) AccessLogRepository {
	return &accessLogRepository{db: db}
}

func (r *accessLogRepository) Create(ctx context.Context, entry *models.AccessLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *accessLogRepository) scoped(ctx context.Context, f LedgerFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.AccessLog{}).Where("event_id = ?", f.EventID)
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	return q
}

func (r *accessLogRepository) CountByRoom(ctx context.Context, f LedgerFilter) ([]RoomCount, error) {
	var rows []RoomCount
	err := r.scoped(ctx, f).
		Select("room_id, COUNT(*) AS count").
		Group("room_id").
		Order("room_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *accessLogRepository) CountByDay(ctx context.Context, f LedgerFilter) ([]DayCount, error) {
	var rows []DayCount
	err := r.scoped(ctx, f).
		Select("DATE_TRUNC('day', created_at) AS day, COUNT(*) AS count").
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *accessLogRepository) CountByDecision(ctx context.Context, f LedgerFilter) ([]DecisionCount, error) {
	var rows []DecisionCount
	err := r.scoped(ctx, f).
		Select("decision, COUNT(*) AS count").
		Group("decision").
		Order("decision ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *accessLogRepository) CountDistinctParticipants(ctx context.Context, f LedgerFilter) (int64, error) {
	var count int64
	err := r.scoped(ctx, f).Distinct("identity_id").Count(&count).Error
	return count, err
}

func (r *accessLogRepository) CountGrantedBadges(ctx context.Context, roomID uint, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessLog{}).
		Where("room_id = ? AND decision = ? AND created_at >= ? AND created_at < ?", roomID, models.DecisionGranted, from, to).
		Distinct("badge_id").
		Count(&count).Error
	return count, err
}

func (r *accessLogRepository) ExistsGrantedSince(ctx context.Context, badgeID uuid.UUID, roomID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessLog{}).
		Where("badge_id = ? AND room_id = ? AND decision = ? AND created_at >= ?", badgeID, roomID, models.DecisionGranted, since).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *accessLogRepository) FindByBadge(ctx context.Context, eventID uint, badgeID uuid.UUID, limit int) ([]models.AccessLog, error) {
	var entries []models.AccessLog
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND badge_id = ?", eventID, badgeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
