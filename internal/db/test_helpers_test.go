package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// setupTestDB creates a migrated database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// setupTestStore returns a store with a mock clock fixed at a known instant.
func setupTestStore(t *testing.T) (*Store, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC))
	return NewStore(setupTestDB(t), clock), clock
}
