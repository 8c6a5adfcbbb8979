package db

import (
	"time"

	"gorm.io/datatypes"
)

// Session is the registry entry for one parsed MapTrack session. The
// row is metadata plus a cached stats blob; the uploaded CSV on disk
// stays the source of truth and raw event listings re-parse it.
type Session struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// ExpiresAt is the timestamp after which this session (and its
	// stored upload file) is eligible for deletion by the retention
	// worker. A nil value means the session does not expire.
	ExpiresAt *time.Time `gorm:"index"`

	// SessionID is the logical id derived from the upload's filename
	// (or the bulk sub-session id). Upserts key on it.
	SessionID string `gorm:"uniqueIndex;size:255;not null"`

	// TestID groups sessions of one experiment run.
	TestID string `gorm:"index;size:128;not null"`

	FilePath string `gorm:"size:512;not null"`
	UserID   string `gorm:"index;size:128"`

	// PrimaryTask is the first task id by order of appearance, kept
	// for quick dashboard grouping.
	PrimaryTask string `gorm:"size:128"`

	// Stats caches {"session": SessionMetrics, "tasks": {id: TaskMetrics}}
	// so serving never re-parses the file. Recomputable at any time.
	Stats datatypes.JSONMap `gorm:"type:json"`
}

// AnswerKey is one researcher-entered correct answer, one row per
// (test, task). Together the rows form the nested
// {test_id: {task_id: answer}} mapping; writing a null answer deletes
// the row.
type AnswerKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	TestID string `gorm:"uniqueIndex:idx_answer_key_unique,priority:1;size:128;not null"`
	TaskID string `gorm:"uniqueIndex:idx_answer_key_unique,priority:2;size:128;not null"`
	Answer int    `gorm:"not null"`
}

// TestAggregate stores the cross-session summary per test, filled by
// the aggregation worker. Nil averages mean no session contributed a
// value.
type TestAggregate struct {
	ID uint `gorm:"primaryKey"`

	UpdatedAt time.Time

	TestID string `gorm:"uniqueIndex;size:128;not null"`

	SessionsCount  int64 `gorm:"not null"`
	AvgDurationMs  *int64
	AvgEventsTotal *int64
}
