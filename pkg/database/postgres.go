package database

import (
	"fmt"

	"github.com/Eursukkul/event-admission/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// appendOnlyTrigger makes access_logs write-once at the storage level.
var appendOnlyTrigger = []string{
	`CREATE OR REPLACE FUNCTION access_logs_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'access_logs is append-only';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_access_logs_append_only ON access_logs`,
	`CREATE TRIGGER trg_access_logs_append_only
		BEFORE UPDATE OR DELETE ON access_logs
		FOR EACH ROW EXECUTE FUNCTION access_logs_append_only()`,
}

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Event{},
		&models.Identity{},
		&models.Membership{},
		&models.Badge{},
		&models.Room{},
		&models.RoomAllowedBadge{},
		&models.Activity{},
		&models.ActivityAccess{},
		&models.AccessLog{},
		&models.RenewalToken{},
		&models.RevokedToken{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// duplicate-scan lookups: latest granted entry per badge and room
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_access_logs_badge_room_created
		ON access_logs (badge_id, room_id, created_at DESC)
		WHERE decision = 'granted'
	`).Error; err != nil {
		return fmt.Errorf("create access log index: %w", err)
	}

	for _, stmt := range appendOnlyTrigger {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install append-only trigger: %w", err)
		}
	}
	return nil
}
