package database

import (
	"estates-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from DSN (managed Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind PgBouncer-style poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

// Models lists every table the workflow owns.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Listing{},
		&domain.ListingEvent{},
		&domain.Engagement{},
	}
}

// AutoMigrate creates or updates the workflow tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
