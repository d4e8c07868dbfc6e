package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-attempt-service/pkg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var examStart = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// testStore is a migrated in-memory database private to one test
type testStore struct {
	t    *testing.T
	db   *gorm.DB
	repo repositories.Repository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := pkg.OpenSQLite(pkg.MemoryDSN(uuid.NewString()), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testStore{t: t, db: db, repo: postgres.NewRepository(db)}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func (s *testStore) question(qType models.QuestionType, maxScore int, options, correct string) *models.Question {
	s.t.Helper()
	q := &models.Question{
		Title:    "question " + uuid.NewString()[:8],
		Type:     qType,
		MaxScore: maxScore,
	}
	if options != "" {
		q.Options = datatypes.JSON(options)
	}
	if correct != "" {
		q.CorrectAnswers = datatypes.JSON(correct)
	}
	require.NoError(s.t, s.repo.Question().Create(context.Background(), nil, q))
	return q
}

// exam stores an exam open from examStart for two hours
func (s *testStore) exam(status models.ExamStatus, questions ...*models.Question) *models.Exam {
	s.t.Helper()
	exam := &models.Exam{
		Title:           "exam " + uuid.NewString()[:8],
		StartTime:       examStart,
		EndTime:         examStart.Add(2 * time.Hour),
		DurationMinutes: 60,
		Status:          status,
	}
	require.NoError(s.t, s.repo.Exam().Create(context.Background(), nil, exam))

	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	require.NoError(s.t, s.repo.ExamQuestion().ReplaceQuestions(context.Background(), nil, exam.ID, ids))
	return exam
}

func (s *testStore) user(role models.UserRole) *models.User {
	s.t.Helper()
	u := &models.User{
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(s.t, s.repo.User().Create(context.Background(), nil, u))
	return u
}

func (s *testStore) count(model interface{}, query string, args ...interface{}) int64 {
	s.t.Helper()
	var n int64
	require.NoError(s.t, s.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
