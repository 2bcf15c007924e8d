package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

const pingTimeout = 5 * time.Second

// ConnectPostgres opens the engagement store, verifies it is reachable and
// brings the schema up to date. Unique index violations surface as
// gorm.ErrDuplicatedKey.
func ConnectPostgres(dsn string, logger zerolog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	logger.Info().Int("tables", len(models.All())).Msg("database schema migrated")

	return db, nil
}

// Migrate creates or updates every table the engine persists, including the
// unique slot index on schedule items.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
