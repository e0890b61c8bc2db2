package repository

import (
	"context"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepository interface {
	// FindAccessRules loads an active room and its allow-list.
	FindAccessRules(ctx context.Context, roomID uint) (*models.RoomAccessRules, error)
	// Upsert writes the room and replaces its allow-list atomically.
	Upsert(ctx context.Context, room *models.Room, allowList []uuid.UUID) error
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) FindAccessRules(ctx context.Context, roomID uint) (*models.RoomAccessRules, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Preload("AllowedBadges").
		Where("id = ? AND active = ?", roomID, true).
		First(&room).Error
	if err != nil {
		return nil, err
	}

	rules := &models.RoomAccessRules{Room: room, AllowList: make(map[uuid.UUID]struct{}, len(room.AllowedBadges))}
	for _, a := range room.AllowedBadges {
		rules.AllowList[a.BadgeID] = struct{}{}
	}
	rules.Room.AllowedBadges = nil
	return rules, nil
}

func (r *roomRepository) Upsert(ctx context.Context, room *models.Room, allowList []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room.AllowedBadges = nil
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"event_id", "name", "capacity", "active", "updated_at"}),
		}).Create(room).Error
		if err != nil {
			return err
		}

		if err := tx.Where("room_id = ?", room.ID).Delete(&models.RoomAllowedBadge{}).Error; err != nil {
			return err
		}
		if len(allowList) == 0 {
			return nil
		}

		rows := make([]models.RoomAllowedBadge, 0, len(allowList))
		for _, badgeID := range allowList {
			rows = append(rows, models.RoomAllowedBadge{RoomID: room.ID, BadgeID: badgeID})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}
