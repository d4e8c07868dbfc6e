package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Clock returns the current time; services normalize it to UTC.
type Clock func() time.Time

// ===== ATTEMPTS =====

type AnswerInput struct {
	QuestionID    uuid.UUID       `json:"question_id" validate:"required"`
	StudentAnswer json.RawMessage `json:"student_answer" validate:"required"`
}

type SaveProgressRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

type AttemptService interface {
	StartOrResume(ctx context.Context, actor Actor, examID uuid.UUID) (*models.ExamAttempt, error)
	SaveProgress(ctx context.Context, actor Actor, attemptID uuid.UUID, req *SaveProgressRequest) ([]models.AttemptAnswer, error)
	Submit(ctx context.Context, actor Actor, attemptID uuid.UUID) (*models.ExamAttempt, error)

	GetSummary(ctx context.Context, actor Actor, attemptID uuid.UUID) (*models.AttemptSummary, error)
	GetFull(ctx context.Context, actor Actor, attemptID uuid.UUID) (*models.AttemptDetail, error)
	ListMine(ctx context.Context, actor Actor, examID *uuid.UUID) ([]*models.ExamAttempt, error)
}

// ===== EXAMS =====

type CreateExamRequest struct {
	Title           string      `json:"title" validate:"required,max=255"`
	StartTime       time.Time   `json:"start_time" validate:"required"`
	EndTime         time.Time   `json:"end_time" validate:"required"`
	DurationMinutes int         `json:"duration_minutes" validate:"required,gt=0"`
	QuestionIDs     []uuid.UUID `json:"question_ids" validate:"required,min=1,unique"`
}

// UpdateExamRequest is a partial update; nil fields are left untouched.
type UpdateExamRequest struct {
	Title           *string            `json:"title" validate:"omitempty,min=1,max=255"`
	StartTime       *time.Time         `json:"start_time"`
	EndTime         *time.Time         `json:"end_time"`
	DurationMinutes *int               `json:"duration_minutes" validate:"omitempty,gt=0"`
	Status          *models.ExamStatus `json:"status" validate:"omitempty,exam_status"`
	QuestionIDs     *[]uuid.UUID       `json:"question_ids" validate:"omitempty,min=1,unique"`
}

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest) (*models.ExamWithQuestions, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateExamRequest) (*models.ExamWithQuestions, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExamWithQuestions, error)
	GetAvailable(ctx context.Context, now time.Time) ([]*models.Exam, error)
	List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error)
}

// ===== QUESTIONS =====

type QuestionRequest struct {
	Title          string              `json:"title" validate:"required"`
	Complexity     string              `json:"complexity" validate:"max=100"`
	Type           models.QuestionType `json:"ques_type" validate:"required,question_type"`
	Options        json.RawMessage     `json:"options"`
	CorrectAnswers json.RawMessage     `json:"correct_answers"`
	MaxScore       int                 `json:"max_score" validate:"required,gt=0"`
	Tags           []string            `json:"tags" validate:"omitempty,dive,required,max=50"`
}

type QuestionService interface {
	Create(ctx context.Context, req *QuestionRequest) (*models.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
	Update(ctx context.Context, id uuid.UUID, req *QuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ===== IMPORT / EXPORT =====

type ImportExportService interface {
	ImportQuestions(ctx context.Context, r io.Reader, filename string) (*models.QuestionImportSummary, error)
	ExportExamResults(ctx context.Context, examID uuid.UUID, w io.Writer) error
}

// ===== AUTH =====

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest changes the caller's own profile. CurrentPassword is
// required when Password is set.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name" validate:"omitempty,max=100"`
	Password        *string `json:"password" validate:"omitempty,min=8,max=72"`
	CurrentPassword string  `json:"current_password" validate:"required_with=Password"`
}

type AuthResponse struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req *RefreshRequest) (*auth.TokenPair, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error)
	// Deactivate disables the account. Existing access tokens stay valid until
	// they expire, refresh and login are refused.
	Deactivate(ctx context.Context, userID uuid.UUID) error
	// EnsureAdmin creates the admin account if the email is not registered yet.
	EnsureAdmin(ctx context.Context, email, password string) error
}
