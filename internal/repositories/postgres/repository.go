package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB

	question     repositories.QuestionRepository
	exam         repositories.ExamRepository
	examQuestion repositories.ExamQuestionRepository
	attempt      repositories.AttemptRepository
	answer       repositories.AnswerRepository
	user         repositories.UserRepository
}

// NewRepository wires every gorm-backed store over one connection pool.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:           db,
		question:     NewQuestionPostgreSQL(db),
		exam:         NewExamPostgreSQL(db),
		examQuestion: NewExamQuestionPostgreSQL(db),
		attempt:      NewAttemptPostgreSQL(db),
		answer:       NewAnswerPostgreSQL(db),
		user:         NewUserPostgreSQL(db),
	}
}

func (r *Repository) Question() repositories.QuestionRepository         { return r.question }
func (r *Repository) Exam() repositories.ExamRepository                 { return r.exam }
func (r *Repository) ExamQuestion() repositories.ExamQuestionRepository { return r.examQuestion }
func (r *Repository) Attempt() repositories.AttemptRepository           { return r.attempt }
func (r *Repository) Answer() repositories.AnswerRepository             { return r.answer }
func (r *Repository) User() repositories.UserRepository                 { return r.user }

func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
