// Package repo persists actors and idempotency records with GORM on SQLite.
// Functions take the *gorm.DB explicitly so callers can pass a transaction.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

// pragmas are applied to every database opened by OpenSQLite.
var pragmas = []string{
	"journal_mode=WAL",
	"synchronous=NORMAL",
	"foreign_keys=ON",
	"busy_timeout=5000",
}

const maxOpenConns = 10

// OpenSQLite opens or creates the database at path with WAL journaling,
// traced queries and a small connection pool. The parent directory must
// already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("tracing plugin: %w", err)
	}
	for _, p := range pragmas {
		if err := db.Exec("PRAGMA " + p).Error; err != nil {
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// AutoMigrate creates or updates the actor and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Actor{}, &domain.Idempotency{})
}
