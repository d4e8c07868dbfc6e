package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "Draft"
	ExamPublished ExamStatus = "Published"
	ExamArchived  ExamStatus = "Archived"
)

var ExamStatuses = []ExamStatus{ExamDraft, ExamPublished, ExamArchived}

func (s ExamStatus) IsValid() bool {
	for _, valid := range ExamStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an exam may move from s to next.
// Archived is terminal; Draft and Published may move between each other.
func (s ExamStatus) CanTransitionTo(next ExamStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case ExamDraft:
		return next == ExamPublished || next == ExamArchived
	case ExamPublished:
		return next == ExamDraft || next == ExamArchived
	default:
		return false
	}
}

type Exam struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title           string     `json:"title" gorm:"size:255;not null"`
	StartTime       time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime         time.Time  `json:"end_time" gorm:"not null;index"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null"`
	Status          ExamStatus `json:"status" gorm:"size:20;not null;default:Draft;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Exam) TableName() string {
	return "exams"
}

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsAvailableAt applies the inclusive listing window.
func (e *Exam) IsAvailableAt(now time.Time) bool {
	return e.Status == ExamPublished && !now.Before(e.StartTime) && !now.After(e.EndTime)
}

// AcceptsNewAttemptAt applies the half-open start window [start, end).
func (e *Exam) AcceptsNewAttemptAt(now time.Time) bool {
	return !now.Before(e.StartTime) && now.Before(e.EndTime)
}

// ExamQuestion keeps the ordered question list of an exam.
type ExamQuestion struct {
	ExamID     uuid.UUID `json:"exam_id" gorm:"type:uuid;primaryKey"`
	QuestionID uuid.UUID `json:"question_id" gorm:"type:uuid;primaryKey;index"`
	Position   int       `json:"position" gorm:"not null"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

// ExamWithQuestions is the exam DTO returned by the catalog.
type ExamWithQuestions struct {
	Exam
	QuestionIDs []uuid.UUID `json:"questions_order"`
}
