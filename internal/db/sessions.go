package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSession inserts or replaces the registry entry for a session
// id. Re-uploading the same file overwrites the previous parse; no
// partial state is ever visible because the row is written in one
// statement.
func UpsertSession(db *gorm.DB, s *Session) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at", "expires_at", "test_id", "file_path", "user_id", "primary_task", "stats",
		}),
	}).Create(s).Error
}

// GetSession loads one registry entry by logical session id.
// gorm.ErrRecordNotFound maps to the boundary's 404.
func GetSession(db *gorm.DB, sessionID string) (*Session, error) {
	var s Session
	if err := db.Where("session_id = ?", sessionID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns registry entries, optionally filtered to one
// test, newest first.
func ListSessions(db *gorm.DB, testID string) ([]Session, error) {
	q := db.Model(&Session{})
	if testID != "" {
		q = q.Where("test_id = ?", testID)
	}
	var sessions []Session
	if err := q.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
