package models

import "github.com/google/uuid"

// AttemptSummary is the result summary view of an attempt.
type AttemptSummary struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	ExamID         uuid.UUID `json:"exam_id"`
	ExamTitle      string    `json:"exam_title"`
	UserID         uuid.UUID `json:"user_id"`
	UserEmail      string    `json:"user_email"`
	IsSubmitted    bool      `json:"is_submitted"`
	TotalScore     *float64  `json:"total_score"`
	GradedCount    int       `json:"graded_count"`
	TotalQuestions int       `json:"total_questions"`
}

// AttemptDetail is an attempt together with every saved answer.
type AttemptDetail struct {
	ExamAttempt
	Answers []AttemptAnswer `json:"attempt_answers"`
}
