package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// summarySelect builds the attempt/exam/user join behind result summaries.
const summarySelect = `a.id AS attempt_id, a.exam_id, e.title AS exam_title, a.user_id, u.email AS user_email,
a.start_time, a.end_time, a.is_submitted, a.total_score,
(SELECT COUNT(*) FROM attempt_answers aa WHERE aa.attempt_id = a.id AND aa.is_graded = ?) AS graded_count`

// ===== BASIC OPERATIONS =====

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	return translate(a.getDB(tx).WithContext(ctx).Create(attempt).Error, "failed to create attempt")
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt %s: %w", id, err)
	}
	return &attempt, nil
}

// GetByIDShared takes FOR SHARE on postgres; the sqlite dialect drops the clause.
func (a *AttemptPostgreSQL) GetByIDShared(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ?", id).
		First(&attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to lock attempt %s: %w", id, err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetActive(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND exam_id = ? AND is_submitted = ?", userID, examID, false).
		First(&attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, examID *uuid.UUID) ([]*models.ExamAttempt, error) {
	attempts := make([]*models.ExamAttempt, 0)
	query := a.getDB(tx).WithContext(ctx).Where("user_id = ?", userID)
	if examID != nil {
		query = query.Where("exam_id = ?", *examID)
	}
	if err := query.Order("start_time DESC").Order("id").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ExistsForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (bool, error) {
	var count int64
	if err := a.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check attempts of exam %s: %w", examID, err)
	}
	return count > 0, nil
}

// ===== STATE CHANGES =====

func (a *AttemptPostgreSQL) MarkSubmitted(ctx context.Context, tx *gorm.DB, id uuid.UUID, endTime time.Time) (bool, error) {
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND is_submitted = ?", id, false).
		Updates(map[string]interface{}{
			"is_submitted": true,
			"end_time":     endTime,
			"updated_at":   endTime,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark attempt submitted: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) SetTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, total float64) error {
	if err := a.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ?", id).
		Update("total_score", total).Error; err != nil {
		return fmt.Errorf("failed to set total score: %w", err)
	}
	return nil
}

// ===== READ MODELS =====

func (a *AttemptPostgreSQL) summaryQuery(ctx context.Context, tx *gorm.DB) *gorm.DB {
	return a.getDB(tx).WithContext(ctx).
		Table("exam_attempts AS a").
		Select(summarySelect, true).
		Joins("JOIN exams AS e ON e.id = a.exam_id").
		Joins("LEFT JOIN users AS u ON u.id = a.user_id")
}

func (a *AttemptPostgreSQL) GetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AttemptSummaryRow, error) {
	var row models.AttemptSummaryRow
	result := a.summaryQuery(ctx, tx).Where("a.id = ?", id).Limit(1).Scan(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get attempt summary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("failed to get attempt summary %s: %w", id, gorm.ErrRecordNotFound)
	}
	return &row, nil
}

func (a *AttemptPostgreSQL) ListSummariesByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*models.AttemptSummaryRow, error) {
	rows := make([]*models.AttemptSummaryRow, 0)
	if err := a.summaryQuery(ctx, tx).
		Where("a.exam_id = ?", examID).
		Order("a.start_time").
		Order("a.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempt summaries: %w", err)
	}
	return rows, nil
}
