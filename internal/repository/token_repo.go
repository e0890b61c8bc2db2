package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	CreateRenewal(ctx context.Context, token *models.RenewalToken) error
	FindRenewal(ctx context.Context, id uuid.UUID) (*models.RenewalToken, error)
	// ConsumeRenewal marks an unused, unrevoked token as used. It reports
	// false when another request already consumed or revoked it.
	ConsumeRenewal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time) error
	RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateRenewal(ctx context.Context, token *models.RenewalToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindRenewal(ctx context.Context, id uuid.UUID) (*models.RenewalToken, error) {
	var token models.RenewalToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) ConsumeRenewal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RenewalToken{}).
		Where("id = ? AND used_at IS NULL AND revoked_at IS NULL", id).
		Update("used_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *tokenRepository) RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.RenewalToken{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", at).Error
}

func (r *tokenRepository) RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RevokedToken{JTI: jti, ExpiresAt: expiresAt}).Error
}

func (r *tokenRepository) IsAccessRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	return count > 0, err
}

// PurgeExpired drops rows that can no longer influence a decision.
func (r *tokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Where("expires_at < ?", now).Delete(&models.RenewalToken{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	return total, err
}
