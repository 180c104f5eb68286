package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/storefront/internal/database"
	"github.com/Additional-Code/storefront/internal/migration"
)

// NewTestDB opens a private in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps the in-memory database alive and avoids SQLITE_LOCKED under shared cache.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := migration.Apply(context.Background(), db.DB, "sqlite"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// Connections wraps db as both writer and reader.
func Connections(db *bun.DB) *database.Connections {
	return &database.Connections{Writer: db, Reader: db}
}
