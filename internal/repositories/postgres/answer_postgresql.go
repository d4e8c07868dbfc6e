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

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (r *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert relies on the (attempt_id, question_id) unique index. Callers must not
// pass the same question twice in one batch.
func (r *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	err := r.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"student_answer", "updated_at"}),
		}).
		Create(&answers).Error
	if err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return nil
}

func (r *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]models.AttemptAnswer, error) {
	answers := make([]models.AttemptAnswer, 0)
	if err := r.getDB(tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at").
		Order("id").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt answers: %w", err)
	}
	return answers, nil
}

func (r *AnswerPostgreSQL) GetByAttemptAndQuestions(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, questionIDs []uuid.UUID) ([]models.AttemptAnswer, error) {
	answers := make([]models.AttemptAnswer, 0, len(questionIDs))
	if len(questionIDs) == 0 {
		return answers, nil
	}
	if err := r.getDB(tx).WithContext(ctx).
		Where("attempt_id = ? AND question_id IN ?", attemptID, questionIDs).
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt answers: %w", err)
	}
	return answers, nil
}

func (r *AnswerPostgreSQL) GetGradable(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]models.GradableAnswer, error) {
	rows := make([]models.GradableAnswer, 0)
	if err := r.getDB(tx).WithContext(ctx).
		Table("attempt_answers AS aa").
		Select("aa.id AS answer_id, aa.question_id, aa.student_answer, q.ques_type, q.correct_answers, q.max_score").
		Joins("LEFT JOIN questions AS q ON q.id = aa.question_id").
		Where("aa.attempt_id = ?", attemptID).
		Order("aa.created_at").
		Order("aa.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load gradable answers: %w", err)
	}
	return rows, nil
}

func (r *AnswerPostgreSQL) SetGrade(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, score float64) error {
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.AttemptAnswer{}).
		Where("id = ?", answerID).
		Updates(map[string]interface{}{"score": score, "is_graded": true}).Error; err != nil {
		return fmt.Errorf("failed to grade answer: %w", err)
	}
	return nil
}
