package repository

import (
	"context"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Activity, error)
	FindAccess(ctx context.Context, badgeID uuid.UUID, activityID uint) (*models.ActivityAccess, error)
	Upsert(ctx context.Context, activity *models.Activity) error
	UpsertAccess(ctx context.Context, access *models.ActivityAccess) error
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) FindByID(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) FindAccess(ctx context.Context, badgeID uuid.UUID, activityID uint) (*models.ActivityAccess, error) {
	var access models.ActivityAccess
	err := r.db.WithContext(ctx).
		Where("badge_id = ? AND activity_id = ?", badgeID, activityID).
		First(&access).Error
	if err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *activityRepository) Upsert(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "room_id", "title", "price", "is_paid", "updated_at"}),
	}).Create(activity).Error
}

func (r *activityRepository) UpsertAccess(ctx context.Context, access *models.ActivityAccess) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "badge_id"}, {Name: "activity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payment_status", "has_access", "updated_at"}),
	}).Create(access).Error
}
