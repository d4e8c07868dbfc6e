package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExamRepository interface for exam catalog operations
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error)
	// GetByIDForUpdate and GetByIDShared lock the exam row until tx ends.
	// Edits take the exclusive lock and new attempts the shared one.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error)
	GetByIDShared(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error

	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status models.ExamStatus) ([]*models.Exam, error)
}

// ExamQuestionRepository interface for the ordered exam/question link table
type ExamQuestionRepository interface {
	// ReplaceQuestions drops the current list of examID and stores questionIDs in order.
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questionIDs []uuid.UUID) error
	GetQuestionIDs(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]uuid.UUID, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (int64, error)

	// IsReferenced reports whether questionID belongs to any exam.
	IsReferenced(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (bool, error)
	// IsLocked reports whether questionID belongs to an exam that left Draft or has attempts.
	IsLocked(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (bool, error)
}
