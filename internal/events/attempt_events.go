package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of domain events the service emits
type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventExamPublished    EventType = "exam.published"
)

const (
	eventSource  = "exam-attempt-service"
	eventVersion = "1.0"
)

// Event is the envelope for every published event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// Payloads

type AttemptStartedEvent struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	ExamID    uuid.UUID `json:"exam_id"`
	UserID    uuid.UUID `json:"user_id"`
	StartTime time.Time `json:"start_time"`
}

type AttemptSubmittedEvent struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	ExamID        uuid.UUID `json:"exam_id"`
	UserID        uuid.UUID `json:"user_id"`
	TotalScore    float64   `json:"total_score"`
	GradedCount   int       `json:"graded_count"`
	UngradedCount int       `json:"ungraded_count"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type ExamPublishedEvent struct {
	ExamID    uuid.UUID `json:"exam_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
