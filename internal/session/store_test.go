package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/reboot-tools/gradboard/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.Session{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(openTestDB(t), time.Hour)

	created, err := store.Create(context.Background(), "tok", "alice", 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected non-empty session id")
	}

	got, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Token != "tok" || got.Login != "alice" || got.UserID != 42 {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestStore_GetAbsent(t *testing.T) {
	store := NewStore(openTestDB(t), time.Hour)

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty id, got %v", err)
	}
}

func TestStore_ExpiredSessionIsGone(t *testing.T) {
	store := NewStore(openTestDB(t), time.Hour)
	now := time.Now().UTC()
	store.now = func() time.Time { return now }

	created, err := store.Create(context.Background(), "tok", "alice", 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := store.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	// The expired row is deleted, not just hidden.
	var count int64
	if errCount := store.db.Model(&models.Session{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected expired row deleted, found %d", count)
	}
}

func TestStore_DeleteThenGetFails(t *testing.T) {
	store := NewStore(openTestDB(t), time.Hour)

	created, err := store.Create(context.Background(), "tok", "alice", 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if errDelete := store.Delete(context.Background(), created.ID); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if _, err := store.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if errDelete := store.Delete(context.Background(), created.ID); errDelete != nil {
		t.Fatalf("second delete should be a no-op, got %v", errDelete)
	}
}

func TestStore_TouchExtendsLifetime(t *testing.T) {
	store := NewStore(openTestDB(t), time.Hour)
	now := time.Now().UTC()
	store.now = func() time.Time { return now }

	created, err := store.Create(context.Background(), "tok", "alice", 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store.now = func() time.Time { return now.Add(50 * time.Minute) }
	if errTouch := store.Touch(context.Background(), created.ID); errTouch != nil {
		t.Fatalf("touch: %v", errTouch)
	}

	store.now = func() time.Time { return now.Add(100 * time.Minute) }
	if _, err := store.Get(context.Background(), created.ID); err != nil {
		t.Fatalf("expected session alive after touch, got %v", err)
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	store := NewStore(openTestDB(t), time.Hour)
	now := time.Now().UTC()
	store.now = func() time.Time { return now }

	if _, err := store.Create(context.Background(), "tok1", "alice", 1); err != nil {
		t.Fatalf("create: %v", err)
	}

	store.now = func() time.Time { return now.Add(30 * time.Minute) }
	fresh, err := store.Create(context.Background(), "tok2", "bob", 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store.now = func() time.Time { return now.Add(80 * time.Minute) }
	purged, err := store.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if _, err := store.Get(context.Background(), fresh.ID); err != nil {
		t.Fatalf("expected fresh session to survive, got %v", err)
	}
}
