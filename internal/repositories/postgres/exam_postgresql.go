package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := e.getDB(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	var exam models.Exam
	if err := e.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&exam).Error; err != nil {
		return nil, fmt.Errorf("failed to get exam %s: %w", id, err)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	return e.getLocked(ctx, tx, id, "UPDATE")
}

func (e *ExamPostgreSQL) GetByIDShared(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	return e.getLocked(ctx, tx, id, "SHARE")
}

// getLocked is a no-op lock on sqlite, where the single writer already serializes.
func (e *ExamPostgreSQL) getLocked(ctx context.Context, tx *gorm.DB, id uuid.UUID, strength string) (*models.Exam, error) {
	var exam models.Exam
	if err := e.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("id = ?", id).
		First(&exam).Error; err != nil {
		return nil, fmt.Errorf("failed to lock exam %s: %w", id, err)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	result := e.getDB(tx).WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", exam.ID).
		Select("title", "start_time", "end_time", "duration_minutes", "status", "updated_at").
		Updates(exam)
	if result.Error != nil {
		return fmt.Errorf("failed to update exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update exam %s: %w", exam.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	var total int64

	query := e.getDB(tx).WithContext(ctx).Model(&models.Exam{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	limit, offset := repositories.Page(filters.Limit, filters.Offset)
	if err := query.Order("start_time DESC").Order("id").Limit(limit).Offset(offset).Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, total, nil
}

// ListByStatus returns every exam in status ordered by start time
func (e *ExamPostgreSQL) ListByStatus(ctx context.Context, tx *gorm.DB, status models.ExamStatus) ([]*models.Exam, error) {
	var exams []*models.Exam
	if err := e.getDB(tx).WithContext(ctx).
		Where("status = ?", status).
		Order("start_time").
		Order("id").
		Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s exams: %w", status, err)
	}
	return exams, nil
}
