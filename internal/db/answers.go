package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAnswerKeys returns the task->answer mapping for one test.
func GetAnswerKeys(db *gorm.DB, testID string) (map[string]int, error) {
	var rows []AnswerKey
	if err := db.Where("test_id = ?", testID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.TaskID] = r.Answer
	}
	return out, nil
}

// ApplyAnswerKeys merges the given updates into a test's answer key.
// A nil value deletes that task's entry; non-nil values upsert. The
// whole merge runs in one transaction so concurrent writers never see
// a half-applied update.
func ApplyAnswerKeys(db *gorm.DB, testID string, updates map[string]*int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for taskID, answer := range updates {
			if answer == nil {
				if err := tx.Where("test_id = ? AND task_id = ?", testID, taskID).Delete(&AnswerKey{}).Error; err != nil {
					return err
				}
				continue
			}
			row := AnswerKey{TestID: testID, TaskID: taskID, Answer: *answer}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "test_id"}, {Name: "task_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"updated_at", "answer"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
