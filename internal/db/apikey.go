package db

import (
	"time"
)

// APIKey represents a bearer token for programmatic access to the
// upload and query API (e.g. a MapTrack logger posting CSV exports
// without going through the dashboard). Each key belongs to a user.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// UserID links this key to the user who owns it.
	UserID uint `gorm:"index;not null"`

	// Name is a user-friendly identifier for this key (e.g. "lab-pc-3").
	Name string `gorm:"size:128;not null"`

	// TestID scopes the key: uploads default to this test and the
	// filtered Prometheus export only shows its series.
	TestID string `gorm:"size:128;not null"`

	// Key is the actual bearer token value (stored as-is, should be unique).
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`

	// User is the owner of this API key.
	User User `gorm:"foreignKey:UserID"`
}
