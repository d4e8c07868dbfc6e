package services

import (
	"context"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	args := m.Called(ctx, tx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	args := m.Called(ctx, tx, questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Question, error) {
	args := m.Called(ctx, tx, id)
	if q, ok := args.Get(0).(*models.Question); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Question, error) {
	args := m.Called(ctx, tx, ids)
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	args := m.Called(ctx, tx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockQuestionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]*models.Question), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuestionRepository) CountExisting(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockExamQuestionRepository is a mock implementation of ExamQuestionRepository
type MockExamQuestionRepository struct {
	mock.Mock
}

func (m *MockExamQuestionRepository) ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questionIDs []uuid.UUID) error {
	args := m.Called(ctx, tx, examID, questionIDs)
	return args.Error(0)
}

func (m *MockExamQuestionRepository) GetQuestionIDs(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tx, examID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockExamQuestionRepository) CountByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, examID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExamQuestionRepository) IsReferenced(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, questionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockExamQuestionRepository) IsLocked(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, questionID)
	return args.Bool(0), args.Error(1)
}

// MockRepository is a mock implementation of the main Repository interface
type MockRepository struct {
	mock.Mock
	questionRepo     *MockQuestionRepository
	examQuestionRepo *MockExamQuestionRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		questionRepo:     &MockQuestionRepository{},
		examQuestionRepo: &MockExamQuestionRepository{},
	}
}

func (m *MockRepository) Question() repositories.QuestionRepository         { return m.questionRepo }
func (m *MockRepository) ExamQuestion() repositories.ExamQuestionRepository { return m.examQuestionRepo }

// Remaining stores are not used by the mocked services
func (m *MockRepository) Exam() repositories.ExamRepository       { return nil }
func (m *MockRepository) Attempt() repositories.AttemptRepository { return nil }
func (m *MockRepository) Answer() repositories.AnswerRepository   { return nil }
func (m *MockRepository) User() repositories.UserRepository       { return nil }

// WithTransaction runs fn directly with a nil tx
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
func (m *MockRepository) Ping(ctx context.Context) error { return nil }
