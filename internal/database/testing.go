package database

import (
	"fmt"
	"testing"

	"academy/internal/config"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenTest returns a migrated, isolated in-memory SQLite database.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}
