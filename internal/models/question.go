package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TextQuestion   QuestionType = "text"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{SingleChoice, MultipleChoice, TextQuestion}

func (t QuestionType) IsValid() bool {
	for _, valid := range QuestionTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// IsAutoGradable reports whether answers of this type are scored at submission.
func (t QuestionType) IsAutoGradable() bool {
	return t == SingleChoice || t == MultipleChoice
}

type Question struct {
	ID             uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string                      `json:"title" gorm:"type:text;not null"`
	Complexity     string                      `json:"complexity" gorm:"size:100;index"`
	Type           QuestionType                `json:"ques_type" gorm:"column:ques_type;size:30;not null;index"`
	Options        datatypes.JSON              `json:"options"`
	CorrectAnswers datatypes.JSON              `json:"correct_answers"`
	MaxScore       int                         `json:"max_score" gorm:"not null"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
