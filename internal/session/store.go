// Package session persists browser sessions binding a cookie to an upstream
// platform token. Handlers receive the store explicitly; nothing reads
// ambient global state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reboot-tools/gradboard/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions via GORM.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore constructs a Store with the given idle TTL.
func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// Create inserts a new session for the given platform token and identity,
// returning the stored row. The ID is the only value handed to the browser.
func (s *Store) Create(ctx context.Context, token, login string, userID int64) (models.Session, error) {
	if s == nil || s.db == nil {
		return models.Session{}, fmt.Errorf("session store: not initialized")
	}
	now := s.now().UTC()
	row := models.Session{
		ID:         uuid.NewString(),
		Token:      token,
		Login:      login,
		UserID:     userID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return models.Session{}, fmt.Errorf("session store: create: %w", errCreate)
	}
	return row, nil
}

// Get loads a live session by ID. Absent and expired sessions are both
// ErrNotFound; expired rows are deleted on the way out.
func (s *Store) Get(ctx context.Context, id string) (models.Session, error) {
	if s == nil || s.db == nil {
		return models.Session{}, fmt.Errorf("session store: not initialized")
	}
	if id == "" {
		return models.Session{}, ErrNotFound
	}

	var row models.Session
	errFind := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.Session{}, ErrNotFound
	}
	if errFind != nil {
		return models.Session{}, fmt.Errorf("session store: get: %w", errFind)
	}

	if s.ttl > 0 && s.now().UTC().After(row.LastSeenAt.Add(s.ttl)) {
		_ = s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error
		return models.Session{}, ErrNotFound
	}
	return row, nil
}

// Touch advances the session's last-seen timestamp.
func (s *Store) Touch(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("session store: not initialized")
	}
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update("last_seen_at", s.now().UTC()).Error
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("session store: not initialized")
	}
	if id == "" {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error
}

// PurgeExpired deletes all sessions idle past the TTL and reports how many
// rows went away.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("session store: not initialized")
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.ttl)
	result := s.db.WithContext(ctx).Delete(&models.Session{}, "last_seen_at < ?", cutoff)
	if result.Error != nil {
		return 0, fmt.Errorf("session store: purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}
