package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"miniFeed/domain"
)

// DB provides the database connection.
type DB struct {
	// Object-relational mapping.
	Gorm *gorm.DB
	// Connection info string containing database name, user, port etc.
	ConnectionInfo string

	// Connection pool settings. Zero values leave database/sql's defaults in place.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewDB returns a new instance of DB.
func NewDB(connectionInfo string) *DB {
	db := &DB{
		ConnectionInfo: connectionInfo,
	}
	return db
}

// Open opens a new database connection. It also configures logging
// based on whether we're in development or in production.
func Open(db *DB, isProd bool) (err error) {
	if db.ConnectionInfo == "" {
		return fmt.Errorf("connectionInfo required")
	}
	logMode := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if !isProd {
		logMode.Logger = logger.Default.LogMode(logger.Info)
	}
	db.Gorm, err = gorm.Open(postgres.Open(db.ConnectionInfo), logMode)
	if err != nil {
		return fmt.Errorf("err opening gorm postgres connection: %w", err)
	}
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return fmt.Errorf("err getting sql.DB from gorm: %w", err)
	}
	if db.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(db.MaxOpenConns)
	}
	if db.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(db.MaxIdleConns)
	}
	if db.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(db.ConnMaxLifetime)
	}
	return nil
}

// models lists every table in dependency order.
var models = []interface{}{
	&domain.User{},
	&domain.Post{},
	&domain.Image{},
	&domain.Like{},
}

// Schema statements that gorm's AutoMigrate can't express. Extensions must exist
// before AutoMigrate runs; the rest runs after it. All of them are idempotent.
var (
	extensions = []string{
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
	}
	searchSchema = []string{
		`ALTER TABLE posts ADD COLUMN IF NOT EXISTS content_search tsvector
			GENERATED ALWAYS AS (to_tsvector('english', "content")) STORED`,
		`CREATE INDEX IF NOT EXISTS idx_content_search ON posts USING gin (content_search)`,
		`CREATE INDEX IF NOT EXISTS idx_username_trgm ON users USING gin (username gin_trgm_ops)`,
	}
)

// Migrate runs database migrations for all tables, including the generated
// full-text search column and the search indexes.
func Migrate(db *DB) error {
	for _, stmt := range extensions {
		if err := db.Gorm.Exec(stmt).Error; err != nil {
			return fmt.Errorf("err creating extension: %w", err)
		}
	}
	if err := db.Gorm.AutoMigrate(models...); err != nil {
		return fmt.Errorf("err migrating: %w", err)
	}
	for _, stmt := range searchSchema {
		if err := db.Gorm.Exec(stmt).Error; err != nil {
			return fmt.Errorf("err creating search schema: %w", err)
		}
	}
	return nil
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *DB) error {
	err := db.Gorm.Migrator().DropTable("post_images", &domain.Like{}, &domain.Image{}, &domain.Post{}, &domain.User{})
	if err != nil {
		return err
	}
	return Migrate(db)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDb, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
