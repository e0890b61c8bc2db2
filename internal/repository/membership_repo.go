package repository

import (
	"context"

	"github.com/Eursukkul/event-admission/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MembershipRepository interface {
	// FindActiveByIdentity returns the identity's active memberships in
	// active events, with Event preloaded, ordered by event id.
	FindActiveByIdentity(ctx context.Context, identityID uint) ([]models.Membership, error)
	FindActive(ctx context.Context, identityID, eventID uint) (*models.Membership, error)
	Upsert(ctx context.Context, membership *models.Membership) error
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) FindActiveByIdentity(ctx context.Context, identityID uint) ([]models.Membership, error) {
	var memberships []models.Membership
	err := r.db.WithContext(ctx).
		Joins("Event").
		Where("memberships.identity_id = ? AND memberships.active = ? AND \"Event\".active = ?", identityID, true, true).
		Order("memberships.event_id ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *membershipRepository) FindActive(ctx context.Context, identityID, eventID uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Joins("Event").
		Where("memberships.identity_id = ? AND memberships.event_id = ? AND memberships.active = ? AND \"Event\".active = ?", identityID, eventID, true, true).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// Upsert keys on (identity_id, event_id); a removal arrives as active=false.
func (r *membershipRepository) Upsert(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_id"}, {Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "active", "assigned_room_id", "updated_at"}),
	}).Create(membership).Error
}
