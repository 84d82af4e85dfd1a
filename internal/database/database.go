// Package database wires the optional Postgres connection used to back
// the conversation-log overflow store (see internal/convlog). It is
// adapted from the teacher's internal/database/database.go, stripped of
// the multi-tenant schema this proxy has no use for.
package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saisudhir14/voiceproxy/internal/logger"
)

// Connect establishes a connection to the PostgreSQL database.
func Connect(databaseURL string) (*gorm.DB, error) {
	log := logger.WithComponent("database")

	config := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(postgres.Open(databaseURL), config)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get database connection")
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info().Msg("Database connected successfully")
	return db, nil
}

// Migrate auto-migrates the given models.
func Migrate(db *gorm.DB, models ...interface{}) error {
	log := logger.WithComponent("database")
	log.Info().Msg("Running database migrations")

	db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`)

	if err := db.AutoMigrate(models...); err != nil {
		log.Error().Err(err).Msg("Migration failed")
		return err
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
