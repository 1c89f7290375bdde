package database

import (
	"fmt"

	"github.com/pgdeck/pgdeck/internal/config"
	"github.com/pgdeck/pgdeck/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a PostgreSQL connection for the console store and optionally
// runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.IsDev() {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

// Migrate creates or updates all console tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserModel{},
		&models.RoleGrant{},
		&models.SessionModel{},
		&models.ServerModel{},
		&models.BackupRecord{},
		&models.SettingModel{},
	)
}
