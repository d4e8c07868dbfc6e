package pkg

import (
	"fmt"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"gorm.io/gorm"
)

// at most one unsubmitted attempt per (user, exam); both postgres and sqlite support partial indexes
const activeAttemptIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_exam_attempts_active
ON exam_attempts (user_id, exam_id) WHERE is_submitted = false`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Exam{},
		&models.ExamQuestion{},
		&models.ExamAttempt{},
		&models.AttemptAnswer{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := db.Exec(activeAttemptIndex).Error; err != nil {
		return fmt.Errorf("failed to create active attempt index: %w", err)
	}
	return nil
}
