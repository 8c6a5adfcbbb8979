package db

import (
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// statNumber digs an optional numeric field out of a cached stats blob.
// JSON round-tripping turns ints into float64; nil or a missing key
// means the metric was absent for that session.
func statNumber(stats map[string]any, key string) (int64, bool) {
	sess, ok := stats["session"].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := sess[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// RunAggregationOnce recomputes the TestAggregate row for every test
// that currently has sessions. Sessions without a duration drop out of
// the duration mean; "no data" stays NULL, never zero.
func RunAggregationOnce(db *gorm.DB) error {
	var sessions []Session
	if err := db.Select("test_id", "stats").Find(&sessions).Error; err != nil {
		return err
	}

	type acc struct {
		count        int64
		durSum, durN int64
		evSum, evN   int64
	}
	groups := make(map[string]*acc)
	for _, s := range sessions {
		a := groups[s.TestID]
		if a == nil {
			a = &acc{}
			groups[s.TestID] = a
		}
		a.count++
		if d, ok := statNumber(s.Stats, "duration_ms"); ok {
			a.durSum += d
			a.durN++
		}
		if n, ok := statNumber(s.Stats, "events_total"); ok {
			a.evSum += n
			a.evN++
		}
	}

	for testID, a := range groups {
		row := TestAggregate{TestID: testID, SessionsCount: a.count}
		if a.durN > 0 {
			avg := a.durSum / a.durN
			row.AvgDurationMs = &avg
		}
		if a.evN > 0 {
			avg := a.evSum / a.evN
			row.AvgEventsTotal = &avg
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "test_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at", "sessions_count", "avg_duration_ms", "avg_events_total"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetTestAggregate loads the cached aggregate row for one test.
func GetTestAggregate(db *gorm.DB, testID string) (*TestAggregate, error) {
	var row TestAggregate
	if err := db.Where("test_id = ?", testID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// StartAggregationWorker recomputes per-test aggregates at startup and
// then every 15 minutes. Uploads also refresh their own test, so the
// worker mainly repairs aggregates after retention deletes sessions.
func StartAggregationWorker(db *gorm.DB) {
	go func() {
		if err := RunAggregationOnce(db); err != nil {
			log.Printf("aggregation error (startup): %v", err)
		}

		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := RunAggregationOnce(db); err != nil {
				log.Printf("aggregation error: %v", err)
			}
		}
	}()
}
