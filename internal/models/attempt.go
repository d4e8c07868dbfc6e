package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamAttempt struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	ExamID      uuid.UUID  `json:"exam_id" gorm:"type:uuid;not null;index"`
	StartTime   time.Time  `json:"start_time" gorm:"not null"`
	EndTime     *time.Time `json:"end_time"`
	IsSubmitted bool       `json:"is_submitted" gorm:"not null;default:false"`
	TotalScore  *float64   `json:"total_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (a *ExamAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type AttemptAnswer struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	AttemptID     uuid.UUID      `json:"attempt_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_answers_attempt_question,priority:1"`
	QuestionID    uuid.UUID      `json:"question_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_answers_attempt_question,priority:2"`
	StudentAnswer datatypes.JSON `json:"student_answer"`
	Score         *float64       `json:"score"`
	IsGraded      bool           `json:"is_graded" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

func (a *AttemptAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// GradableAnswer is an answer joined with the question it references.
// QuestionType is empty when the question no longer exists.
type GradableAnswer struct {
	AnswerID       uuid.UUID      `gorm:"column:answer_id"`
	QuestionID     uuid.UUID      `gorm:"column:question_id"`
	StudentAnswer  datatypes.JSON `gorm:"column:student_answer"`
	QuestionType   *QuestionType  `gorm:"column:ques_type"`
	CorrectAnswers datatypes.JSON `gorm:"column:correct_answers"`
	MaxScore       *int           `gorm:"column:max_score"`
}

// AttemptSummaryRow is the joined attempt/exam/user row behind a result summary.
type AttemptSummaryRow struct {
	AttemptID   uuid.UUID  `gorm:"column:attempt_id"`
	ExamID      uuid.UUID  `gorm:"column:exam_id"`
	ExamTitle   string     `gorm:"column:exam_title"`
	UserID      uuid.UUID  `gorm:"column:user_id"`
	UserEmail   *string    `gorm:"column:user_email"`
	StartTime   time.Time  `gorm:"column:start_time"`
	EndTime     *time.Time `gorm:"column:end_time"`
	IsSubmitted bool       `gorm:"column:is_submitted"`
	TotalScore  *float64   `gorm:"column:total_score"`
	GradedCount int64      `gorm:"column:graded_count"`
}
