package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert violates a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Type       *models.QuestionType `json:"ques_type" form:"ques_type"`
	Complexity string               `json:"complexity" form:"complexity"`
	Tags       []string             `json:"tags" form:"tags"`
	Search     string               `json:"search_term" form:"search_term"`
	Limit      int                  `json:"limit" form:"limit"`
	Offset     int                  `json:"offset" form:"offset"`
}

type ExamFilters struct {
	Status *models.ExamStatus `json:"status" form:"status"`
	Limit  int                `json:"limit" form:"limit"`
	Offset int                `json:"offset" form:"offset"`
}

// ===== AGGREGATE =====

// Repository groups every store used by the services.
// WithTransaction runs fn inside one database transaction; repositories called
// with the tx it receives take part in that transaction.
type Repository interface {
	Question() QuestionRepository
	Exam() ExamRepository
	ExamQuestion() ExamQuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	User() UserRepository

	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Ping(ctx context.Context) error
}

// IsNotFoundError reports whether err means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

// Page normalizes limit/offset pairs.
func Page(limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	return limitOrDefault(limit), offset
}

