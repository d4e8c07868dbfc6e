package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttemptRepository interface for exam attempt operations
type AttemptRepository interface {
	// Create returns ErrDuplicateKey when the user already holds an active attempt on the exam.
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error)
	// GetByIDShared reads the attempt under a shared row lock held until tx ends.
	GetByIDShared(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error)
	GetActive(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (*models.ExamAttempt, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, examID *uuid.UUID) ([]*models.ExamAttempt, error)
	ExistsForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (bool, error)

	// MarkSubmitted flips is_submitted only if it is still false and reports whether it did.
	MarkSubmitted(ctx context.Context, tx *gorm.DB, id uuid.UUID, endTime time.Time) (bool, error)
	SetTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, total float64) error

	// Joined read models
	GetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AttemptSummaryRow, error)
	ListSummariesByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*models.AttemptSummaryRow, error)
}

// AnswerRepository interface for per-question attempt answers
type AnswerRepository interface {
	// Upsert inserts answers or overwrites the payload of existing (attempt, question) rows.
	Upsert(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]models.AttemptAnswer, error)
	GetByAttemptAndQuestions(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, questionIDs []uuid.UUID) ([]models.AttemptAnswer, error)

	// GetGradable joins each answer of attemptID with its question, if it still exists.
	GetGradable(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]models.GradableAnswer, error)
	SetGrade(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, score float64) error
}
