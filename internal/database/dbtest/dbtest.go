// Package dbtest provides a migrated in-memory SQLite database for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"hoctap/internal/database"
)

// Open returns a fresh database that lives until the test finishes
func Open(t testing.TB) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s-%s?mode=memory&cache=shared", name, uuid.NewString())

	db, err := database.Open(database.NewSQLiteDialect(), database.DialectConfig{Path: dsn})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A shared-cache memory database disappears with its last connection, and
	// concurrent writers on one would fail with SQLITE_LOCKED.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.RunMigrations(context.Background()); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// User describes a row inserted by InsertUser; zero fields take column defaults
type User struct {
	ID          string
	Email       string
	Role        string
	TokenQuota  int
	TokensUsed  int
	UnlockQuota int
	UnlocksUsed int
	UnlockHash  string
}

// InsertUser seeds a user row and returns its id
func InsertUser(t testing.TB, db *database.DB, u User) string {
	t.Helper()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Email == "" {
		u.Email = u.ID + "@example.vn"
	}
	if u.Role == "" {
		u.Role = "student"
	}
	if u.TokenQuota == 0 {
		u.TokenQuota = 10000
	}
	if u.UnlockQuota == 0 {
		u.UnlockQuota = 10
	}

	var hash any
	if u.UnlockHash != "" {
		hash = u.UnlockHash
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, email, full_name, role, token_quota, tokens_used_today,
			unlock_code_hash, unlock_quota, unlocks_used, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, "Test User", u.Role, u.TokenQuota, u.TokensUsed,
		hash, u.UnlockQuota, u.UnlocksUsed, now, now)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return u.ID
}
