package db

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
)

// runRetentionOnce performs a single pass of retention cleanup,
// deleting any sessions whose ExpiresAt is in the past together with
// their stored upload files.
func runRetentionOnce(db *gorm.DB) error {
	now := time.Now()

	var expired []Session
	if err := db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Find(&expired).Error; err != nil {
		return err
	}

	for _, s := range expired {
		if s.FilePath != "" {
			if err := os.Remove(s.FilePath); err != nil && !os.IsNotExist(err) {
				log.Printf("retention: failed to remove %s: %v", s.FilePath, err)
			}
		}
		if err := db.Delete(&Session{}, s.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day.
func StartRetentionWorker(db *gorm.DB) {
	go func() {
		if err := runRetentionOnce(db); err != nil {
			log.Printf("retention cleanup error (startup): %v", err)
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := runRetentionOnce(db); err != nil {
				log.Printf("retention cleanup error: %v", err)
			}
		}
	}()
}
