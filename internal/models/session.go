package models

import "time"

// Session binds a browser cookie to an upstream platform token.
type Session struct {
	ID string `gorm:"type:text;primaryKey"` // Opaque session ID handed to the browser.

	Token  string `gorm:"type:text;not null"`       // Upstream bearer token.
	Login  string `gorm:"type:text;not null;index"` // Platform login the token belongs to.
	UserID int64  `gorm:"not null;default:0"`       // Platform user ID read from the token claims.

	CreatedAt  time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	LastSeenAt time.Time `gorm:"not null;index"`          // Last authenticated request timestamp.
}
