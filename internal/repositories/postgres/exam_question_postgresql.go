package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExamQuestionPostgreSQL struct {
	db *gorm.DB
}

func NewExamQuestionPostgreSQL(db *gorm.DB) repositories.ExamQuestionRepository {
	return &ExamQuestionPostgreSQL{db: db}
}

func (eq *ExamQuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return eq.db
}

// ReplaceQuestions rewrites the ordered list. Callers pass a tx so readers never see a half-written list.
func (eq *ExamQuestionPostgreSQL) ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questionIDs []uuid.UUID) error {
	db := eq.getDB(tx).WithContext(ctx)
	if err := db.Where("exam_id = ?", examID).Delete(&models.ExamQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to clear exam questions: %w", err)
	}
	if len(questionIDs) == 0 {
		return nil
	}

	links := make([]models.ExamQuestion, 0, len(questionIDs))
	for i, qid := range questionIDs {
		links = append(links, models.ExamQuestion{ExamID: examID, QuestionID: qid, Position: i + 1})
	}
	return translate(db.Create(&links).Error, "failed to store exam questions")
}

func (eq *ExamQuestionPostgreSQL) GetQuestionIDs(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	if err := eq.getDB(tx).WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("exam_id = ?", examID).
		Order("position").
		Pluck("question_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get exam questions: %w", err)
	}
	return ids, nil
}

func (eq *ExamQuestionPostgreSQL) CountByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (int64, error) {
	var count int64
	if err := eq.getDB(tx).WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count exam questions: %w", err)
	}
	return count, nil
}

func (eq *ExamQuestionPostgreSQL) IsReferenced(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (bool, error) {
	var count int64
	if err := eq.getDB(tx).WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("question_id = ?", questionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check question usage: %w", err)
	}
	return count > 0, nil
}

func (eq *ExamQuestionPostgreSQL) IsLocked(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (bool, error) {
	var count int64
	if err := eq.getDB(tx).WithContext(ctx).
		Table("exam_questions AS eq").
		Joins("JOIN exams AS e ON e.id = eq.exam_id").
		Where("eq.question_id = ?", questionID).
		Where("e.status <> ? OR EXISTS (SELECT 1 FROM exam_attempts AS a WHERE a.exam_id = e.id)", models.ExamDraft).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check question lock: %w", err)
	}
	return count > 0, nil
}
