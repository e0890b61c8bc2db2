package repository

import (
	"context"

	"github.com/Eursukkul/event-admission/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdentityRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Identity, error)
	Upsert(ctx context.Context, identity *models.Identity) error
}

type identityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) FindByID(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).First(&identity, id).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Identity, error) {
	var identities []models.Identity
	if len(ids) == 0 {
		return identities, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&identities).Error; err != nil {
		return nil, err
	}
	return identities, nil
}

func (r *identityRepository) Upsert(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "secret_hash", "updated_at"}),
	}).Create(identity).Error
}
