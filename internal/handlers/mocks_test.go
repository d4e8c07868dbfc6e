package handlers

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockAttemptService struct {
	mock.Mock
}

func (m *MockAttemptService) StartOrResume(ctx context.Context, actor services.Actor, examID uuid.UUID) (*models.ExamAttempt, error) {
	args := m.Called(ctx, actor, examID)
	if a, ok := args.Get(0).(*models.ExamAttempt); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttemptService) SaveProgress(ctx context.Context, actor services.Actor, attemptID uuid.UUID, req *services.SaveProgressRequest) ([]models.AttemptAnswer, error) {
	args := m.Called(ctx, actor, attemptID, req)
	if a, ok := args.Get(0).([]models.AttemptAnswer); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttemptService) Submit(ctx context.Context, actor services.Actor, attemptID uuid.UUID) (*models.ExamAttempt, error) {
	args := m.Called(ctx, actor, attemptID)
	if a, ok := args.Get(0).(*models.ExamAttempt); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttemptService) GetSummary(ctx context.Context, actor services.Actor, attemptID uuid.UUID) (*models.AttemptSummary, error) {
	args := m.Called(ctx, actor, attemptID)
	if s, ok := args.Get(0).(*models.AttemptSummary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttemptService) GetFull(ctx context.Context, actor services.Actor, attemptID uuid.UUID) (*models.AttemptDetail, error) {
	args := m.Called(ctx, actor, attemptID)
	if d, ok := args.Get(0).(*models.AttemptDetail); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAttemptService) ListMine(ctx context.Context, actor services.Actor, examID *uuid.UUID) ([]*models.ExamAttempt, error) {
	args := m.Called(ctx, actor, examID)
	if a, ok := args.Get(0).([]*models.ExamAttempt); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockExamService struct {
	mock.Mock
}

func (m *MockExamService) Create(ctx context.Context, req *services.CreateExamRequest) (*models.ExamWithQuestions, error) {
	args := m.Called(ctx, req)
	if e, ok := args.Get(0).(*models.ExamWithQuestions); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExamService) Update(ctx context.Context, id uuid.UUID, req *services.UpdateExamRequest) (*models.ExamWithQuestions, error) {
	args := m.Called(ctx, id, req)
	if e, ok := args.Get(0).(*models.ExamWithQuestions); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExamService) GetByID(ctx context.Context, id uuid.UUID) (*models.ExamWithQuestions, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*models.ExamWithQuestions); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExamService) GetAvailable(ctx context.Context, now time.Time) ([]*models.Exam, error) {
	args := m.Called(ctx, now)
	if e, ok := args.Get(0).([]*models.Exam); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExamService) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	args := m.Called(ctx, filters)
	if e, ok := args.Get(0).([]*models.Exam); ok {
		return e, args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) Create(ctx context.Context, req *services.QuestionRequest) (*models.Question, error) {
	args := m.Called(ctx, req)
	if q, ok := args.Get(0).(*models.Question); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionService) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	args := m.Called(ctx, id)
	if q, ok := args.Get(0).(*models.Question); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionService) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	args := m.Called(ctx, filters)
	if q, ok := args.Get(0).([]*models.Question); ok {
		return q, args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *MockQuestionService) Update(ctx context.Context, id uuid.UUID, req *services.QuestionRequest) (*models.Question, error) {
	args := m.Called(ctx, id, req)
	if q, ok := args.Get(0).(*models.Question); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockImportExportService struct {
	mock.Mock
}

func (m *MockImportExportService) ImportQuestions(ctx context.Context, r io.Reader, filename string) (*models.QuestionImportSummary, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body), filename)
	if s, ok := args.Get(0).(*models.QuestionImportSummary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockImportExportService) ExportExamResults(ctx context.Context, examID uuid.UUID, w io.Writer) error {
	args := m.Called(ctx, examID)
	if content, ok := args.Get(0).(string); ok && content != "" {
		_, _ = io.WriteString(w, content)
	}
	return args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req *services.RegisterRequest) (*services.AuthResponse, error) {
	args := m.Called(ctx, req)
	if r, ok := args.Get(0).(*services.AuthResponse); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req *services.LoginRequest) (*services.AuthResponse, error) {
	args := m.Called(ctx, req)
	if r, ok := args.Get(0).(*services.AuthResponse); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, req *services.RefreshRequest) (*auth.TokenPair, error) {
	args := m.Called(ctx, req)
	if p, ok := args.Get(0).(*auth.TokenPair); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *services.UpdateProfileRequest) (*models.User, error) {
	args := m.Called(ctx, userID, req)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}
