package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionRepository interface for question bank operations
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)

	// CountExisting returns how many of ids resolve to stored questions.
	CountExisting(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error)
}
