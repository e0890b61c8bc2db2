package repository

import (
	"context"

	"github.com/Eursukkul/event-admission/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository interface {
	FindByIdentityAndEvent(ctx context.Context, identityID, eventID uint) (*models.Badge, error)
	// Upsert inserts a badge; once issued only the check-in fields change.
	// A badge with a new id for the same identity and event supersedes the
	// old one.
	Upsert(ctx context.Context, badge *models.Badge) error
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) FindByIdentityAndEvent(ctx context.Context, identityID, eventID uint) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.WithContext(ctx).
		Where("identity_id = ? AND event_id = ?", identityID, eventID).
		First(&badge).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *badgeRepository) Upsert(ctx context.Context, badge *models.Badge) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identity_id = ? AND event_id = ? AND id <> ?", badge.IdentityID, badge.EventID, badge.ID).
			Delete(&models.Badge{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"checked_in", "checked_in_at"}),
		}).Create(badge).Error
	})
}
