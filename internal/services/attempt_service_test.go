package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	optionsABC   = `{"A":"one","B":"two","C":"three"}`
	singleKeyB   = `{"selected":["B"]}`
	multiKeyAC   = `{"selected_options":["A","C"]}`
	textModelKey = `{"model_answer":"because"}`
)

type attemptFixture struct {
	store     *testStore
	publisher *events.MockEventPublisher
	service   AttemptService
	student   Actor
	exam      *models.Exam
	q1, q2    *models.Question
}

// newAttemptFixture builds the two question exam used across these tests:
// Q1 single choice worth 5 (key B), Q2 multiple choice worth 10 (keys A, C).
func newAttemptFixture(t *testing.T, now time.Time) *attemptFixture {
	store := newTestStore(t)
	q1 := store.question(models.SingleChoice, 5, optionsABC, singleKeyB)
	q2 := store.question(models.MultipleChoice, 10, optionsABC, multiKeyAC)
	exam := store.exam(models.ExamPublished, q1, q2)
	user := store.user(models.RoleStudent)

	publisher := events.NewMockEventPublisher(discardLogger())
	return &attemptFixture{
		store:     store,
		publisher: publisher,
		service:   newAttemptServiceAt(store.repo, publisher, now),
		student:   Actor{UserID: user.ID, Role: models.RoleStudent},
		exam:      exam,
		q1:        q1,
		q2:        q2,
	}
}

func newAttemptServiceAt(repo repositories.Repository, publisher events.EventPublisher, now time.Time) AttemptService {
	return NewAttemptService(repo, publisher, validator.New(), discardLogger(), WithAttemptClock(fixedClock(now)))
}

func answer(q *models.Question, payload string) AnswerInput {
	return AnswerInput{QuestionID: q.ID, StudentAnswer: json.RawMessage(payload)}
}

func TestAttemptService_StartOrResume(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	first, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)
	assert.False(t, first.IsSubmitted)
	assert.Nil(t, first.TotalScore)
	assert.Equal(t, examStart.Add(time.Hour), first.StartTime)

	_, err = f.service.SaveProgress(ctx, f.student, first.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(f.q1, singleKeyB)},
	})
	require.NoError(t, err)

	// a later call resumes with the original timer and answers
	later := newAttemptServiceAt(f.store.repo, f.publisher, examStart.Add(90*time.Minute))
	resumed, err := later.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, resumed.ID)
	assert.True(t, first.StartTime.Equal(resumed.StartTime))

	full, err := later.GetFull(ctx, f.student, resumed.ID)
	require.NoError(t, err)
	assert.Len(t, full.Answers, 1)

	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptStarted), 1)
}

func TestAttemptService_StartOrResume_Concurrent(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))

	const workers = 16
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attempt, err := f.service.StartOrResume(context.Background(), f.student, f.exam.ID)
			errs[i] = err
			if attempt != nil {
				ids[i] = attempt.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(1), f.store.count(&models.ExamAttempt{}, "user_id = ? AND exam_id = ?", f.student.UserID, f.exam.ID))
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptStarted), 1)
}

func TestAttemptService_StartOrResume_Window(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{name: "exactly at start", now: examStart},
		{name: "just before end", now: examStart.Add(2*time.Hour - time.Nanosecond)},
		{name: "before start", now: examStart.Add(-time.Second), wantErr: ErrOutOfWindow},
		{name: "exactly at end", now: examStart.Add(2 * time.Hour), wantErr: ErrOutOfWindow},
		{name: "after end", now: examStart.Add(3 * time.Hour), wantErr: ErrOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture(t, tt.now)

			attempt, err := f.service.StartOrResume(context.Background(), f.student, f.exam.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, attempt)
				assert.Equal(t, int64(0), f.store.count(&models.ExamAttempt{}, "exam_id = ?", f.exam.ID))
				assert.Empty(t, f.publisher.GetPublishedEvents())
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, attempt.ID)
		})
	}
}

func TestAttemptService_StartOrResume_ExamNotTakeable(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	for _, status := range []models.ExamStatus{models.ExamDraft, models.ExamArchived} {
		exam := f.store.exam(status, f.q1)
		_, err := f.service.StartOrResume(ctx, f.student, exam.ID)
		assert.ErrorIs(t, err, ErrExamNotFound, status)
	}

	_, err := f.service.StartOrResume(ctx, f.student, uuid.New())
	assert.ErrorIs(t, err, ErrExamNotFound)
	assert.True(t, IsNotFound(err))
}

func TestAttemptService_SaveProgress_Idempotent(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)

	saved, err := f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(f.q1, `{"selected":["A"]}`)},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	firstID := saved[0].ID

	// same question again plus a duplicate inside the batch; the last payload wins
	saved, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{
			answer(f.q1, `{"selected":["C"]}`),
			answer(f.q2, `{"selected":["A"]}`),
			answer(f.q1, singleKeyB),
		},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, f.q1.ID, saved[0].QuestionID)
	assert.Equal(t, firstID, saved[0].ID)
	assert.JSONEq(t, singleKeyB, string(saved[0].StudentAnswer))
	assert.Nil(t, saved[0].Score)
	assert.False(t, saved[0].IsGraded)
	assert.Equal(t, f.q2.ID, saved[1].QuestionID)

	assert.Equal(t, int64(1), f.store.count(&models.AttemptAnswer{}, "attempt_id = ? AND question_id = ?", attempt.ID, f.q1.ID))
	assert.Equal(t, int64(2), f.store.count(&models.AttemptAnswer{}, "attempt_id = ?", attempt.ID))
}

func TestAttemptService_SaveProgress_Rejects(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)

	t.Run("question outside the exam", func(t *testing.T) {
		stranger := f.store.question(models.SingleChoice, 1, optionsABC, singleKeyB)
		_, err := f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
			Answers: []AnswerInput{answer(stranger, singleKeyB)},
		})
		assert.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
			Answers: []AnswerInput{answer(f.q1, `{"selected":`)},
		})
		assert.True(t, IsValidation(err))
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{})
		assert.True(t, IsValidation(err))
	})

	t.Run("someone else's attempt", func(t *testing.T) {
		other := Actor{UserID: uuid.New(), Role: models.RoleStudent}
		_, err := f.service.SaveProgress(ctx, other, attempt.ID, &SaveProgressRequest{
			Answers: []AnswerInput{answer(f.q1, singleKeyB)},
		})
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})

	t.Run("admin may save", func(t *testing.T) {
		admin := Actor{UserID: uuid.New(), Role: models.RoleAdmin}
		_, err := f.service.SaveProgress(ctx, admin, attempt.ID, &SaveProgressRequest{
			Answers: []AnswerInput{answer(f.q1, singleKeyB)},
		})
		assert.NoError(t, err)
	})

	t.Run("missing attempt", func(t *testing.T) {
		_, err := f.service.SaveProgress(ctx, f.student, uuid.New(), &SaveProgressRequest{
			Answers: []AnswerInput{answer(f.q1, singleKeyB)},
		})
		assert.ErrorIs(t, err, ErrAttemptNotFound)
	})

	t.Run("submitted attempt", func(t *testing.T) {
		_, err := f.service.Submit(ctx, f.student, attempt.ID)
		require.NoError(t, err)

		_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
			Answers: []AnswerInput{answer(f.q2, multiKeyAC)},
		})
		assert.ErrorIs(t, err, ErrAttemptClosed)
		assert.Equal(t, int64(0), f.store.count(&models.AttemptAnswer{}, "attempt_id = ? AND question_id = ?", attempt.ID, f.q2.ID))
	})
}

func TestAttemptService_EndToEnd(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(30*time.Minute))
	ctx := context.Background()

	available, err := NewExamService(f.store.repo, nil, time.Minute, nil, validator.New(), discardLogger()).
		GetAvailable(ctx, examStart.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, f.exam.ID, available[0].ID)

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)

	_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(f.q1, singleKeyB)},
	})
	require.NoError(t, err)

	submitted, err := f.service.Submit(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	assert.True(t, submitted.IsSubmitted)
	require.NotNil(t, submitted.EndTime)
	require.NotNil(t, submitted.TotalScore)
	assert.Equal(t, 5.0, *submitted.TotalScore)

	summary, err := f.service.GetSummary(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, f.exam.Title, summary.ExamTitle)
	assert.NotEmpty(t, summary.UserEmail)
	assert.True(t, summary.IsSubmitted)
	require.NotNil(t, summary.TotalScore)
	assert.Equal(t, 5.0, *summary.TotalScore)
	assert.Equal(t, 1, summary.GradedCount)
	assert.Equal(t, 2, summary.TotalQuestions)

	full, err := f.service.GetFull(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	require.Len(t, full.Answers, 1)
	assert.Equal(t, f.q1.ID, full.Answers[0].QuestionID)
	assert.True(t, full.Answers[0].IsGraded)
	require.NotNil(t, full.Answers[0].Score)
	assert.Equal(t, 5.0, *full.Answers[0].Score)
	assert.Equal(t, int64(0), f.store.count(&models.AttemptAnswer{}, "attempt_id = ? AND question_id = ?", attempt.ID, f.q2.ID))

	submittedEvents := f.publisher.EventsOfType(events.EventAttemptSubmitted)
	require.Len(t, submittedEvents, 1)
	payload, ok := submittedEvents[0].Data.(events.AttemptSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, 5.0, payload.TotalScore)
	assert.Equal(t, 1, payload.GradedCount)
}

func TestAttemptService_Submit_Twice(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)
	_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(f.q1, singleKeyB), answer(f.q2, `{"selected":["C","A","A"]}`)},
	})
	require.NoError(t, err)

	first, err := f.service.Submit(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, first.TotalScore)
	assert.Equal(t, 15.0, *first.TotalScore)

	_, err = f.service.Submit(ctx, f.student, attempt.ID)
	assert.ErrorIs(t, err, ErrAttemptClosed)
	assert.True(t, IsConflict(err))

	again, err := f.service.GetFull(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, *again.TotalScore)
	assert.True(t, first.EndTime.Equal(*again.EndTime))
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptSubmitted), 1)

	// a finished attempt does not block a new one
	next, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)
	assert.NotEqual(t, attempt.ID, next.ID)
}

func TestAttemptService_Submit_Concurrent(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)
	_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(f.q1, singleKeyB)},
	})
	require.NoError(t, err)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Submit(ctx, f.student, attempt.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAttemptClosed)
	}
	assert.Equal(t, 1, succeeded)

	full, err := f.service.GetFull(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, *full.TotalScore)
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptSubmitted), 1)
}

func TestAttemptService_Submit_TextAndDeletedQuestions(t *testing.T) {
	store := newTestStore(t)
	text := store.question(models.TextQuestion, 10, "", textModelKey)
	choice := store.question(models.SingleChoice, 4, optionsABC, singleKeyB)
	exam := store.exam(models.ExamPublished, text, choice)
	student := Actor{UserID: uuid.New(), Role: models.RoleStudent}
	service := newAttemptServiceAt(store.repo, nil, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := service.StartOrResume(ctx, student, exam.ID)
	require.NoError(t, err)
	_, err = service.SaveProgress(ctx, student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(text, `{"text":"an essay"}`), answer(choice, singleKeyB)},
	})
	require.NoError(t, err)

	// the choice question disappears before submission
	require.NoError(t, store.db.Where("id = ?", choice.ID).Delete(&models.Question{}).Error)

	submitted, err := service.Submit(ctx, student, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, submitted.TotalScore)
	assert.Equal(t, 0.0, *submitted.TotalScore)

	full, err := service.GetFull(ctx, student, attempt.ID)
	require.NoError(t, err)
	require.Len(t, full.Answers, 2)
	for _, a := range full.Answers {
		assert.False(t, a.IsGraded)
		assert.Nil(t, a.Score)
	}

	summary, err := service.GetSummary(ctx, student, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GradedCount)
	// no user row exists for this actor
	assert.Empty(t, summary.UserEmail)
}

type failingAttemptRepo struct {
	repositories.AttemptRepository
}

func (failingAttemptRepo) SetTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, total float64) error {
	return errors.New("disk full")
}

type failingRepo struct {
	repositories.Repository
}

func (r failingRepo) Attempt() repositories.AttemptRepository {
	return failingAttemptRepo{r.Repository.Attempt()}
}

func TestAttemptService_Submit_RollsBackOnStorageFailure(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)
	_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
		Answers: []AnswerInput{answer(f.q1, singleKeyB)},
	})
	require.NoError(t, err)

	broken := newAttemptServiceAt(failingRepo{f.store.repo}, f.publisher, examStart.Add(time.Hour))
	_, err = broken.Submit(ctx, f.student, attempt.ID)
	assert.True(t, IsStorageFailure(err))
	assert.ErrorContains(t, err, "disk full")

	full, err := f.service.GetFull(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	assert.False(t, full.IsSubmitted)
	assert.Nil(t, full.EndTime)
	assert.False(t, full.Answers[0].IsGraded)
	assert.Empty(t, f.publisher.EventsOfType(events.EventAttemptSubmitted))

	// the retry goes through
	submitted, err := f.service.Submit(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, *submitted.TotalScore)
}

func TestAttemptService_Reads(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)

	_, err = f.service.GetSummary(ctx, f.student, uuid.New())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	_, err = f.service.GetFull(ctx, f.student, uuid.New())
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	stranger := Actor{UserID: uuid.New(), Role: models.RoleStudent}
	var permErr *PermissionError
	_, err = f.service.GetSummary(ctx, stranger, attempt.ID)
	assert.ErrorAs(t, err, &permErr)
	_, err = f.service.GetFull(ctx, stranger, attempt.ID)
	assert.ErrorAs(t, err, &permErr)

	summary, err := f.service.GetSummary(ctx, Actor{UserID: uuid.New(), Role: models.RoleAdmin}, attempt.ID)
	require.NoError(t, err)
	assert.False(t, summary.IsSubmitted)
	assert.Nil(t, summary.TotalScore)
	assert.Equal(t, 2, summary.TotalQuestions)

	mine, err := f.service.ListMine(ctx, f.student, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, attempt.ID, mine[0].ID)

	none, err := f.service.ListMine(ctx, f.student, &uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAttemptService_SaveProgress_ConcurrentSameQuestion(t *testing.T) {
	f := newAttemptFixture(t, examStart.Add(time.Hour))
	ctx := context.Background()

	attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
	require.NoError(t, err)

	payloads := []string{singleKeyB, `{"selected":["A"]}`}
	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{
				Answers: []AnswerInput{answer(f.q1, payloads[i%2])},
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), f.store.count(&models.AttemptAnswer{}, "attempt_id = ? AND question_id = ?", attempt.ID, f.q1.ID))

	full, err := f.service.GetFull(ctx, f.student, attempt.ID)
	require.NoError(t, err)
	require.Len(t, full.Answers, 1)
	assert.Contains(t, payloads, compactJSON(t, full.Answers[0].StudentAnswer))
}

// gate parks the first caller until release is closed
type gate struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) pass() {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
}

type gatedAnswerRepo struct {
	repositories.AnswerRepository
	gate *gate
}

func (r gatedAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error {
	r.gate.pass()
	return r.AnswerRepository.Upsert(ctx, tx, answers)
}

type gatedAttemptRepo struct {
	repositories.AttemptRepository
	gate *gate
}

func (r gatedAttemptRepo) SetTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, total float64) error {
	r.gate.pass()
	return r.AttemptRepository.SetTotalScore(ctx, tx, id, total)
}

// gatedRepo holds a save inside its upsert or a submit before it stores the total
type gatedRepo struct {
	repositories.Repository
	upsert *gate
	score  *gate
}

func (r gatedRepo) Answer() repositories.AnswerRepository {
	if r.upsert == nil {
		return r.Repository.Answer()
	}
	return gatedAnswerRepo{r.Repository.Answer(), r.upsert}
}

func (r gatedRepo) Attempt() repositories.AttemptRepository {
	if r.score == nil {
		return r.Repository.Attempt()
	}
	return gatedAttemptRepo{r.Repository.Attempt(), r.score}
}

func TestAttemptService_SaveProgress_RacesSubmit(t *testing.T) {
	now := examStart.Add(time.Hour)

	t.Run("save in flight is graded", func(t *testing.T) {
		f := newAttemptFixture(t, now)
		ctx := context.Background()
		attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
		require.NoError(t, err)
		_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{Answers: []AnswerInput{answer(f.q1, singleKeyB)}})
		require.NoError(t, err)

		g := newGate()
		saver := newAttemptServiceAt(gatedRepo{Repository: f.store.repo, upsert: g}, f.publisher, now)

		var (
			wg        sync.WaitGroup
			saveErr   error
			submitErr error
			submitted *models.ExamAttempt
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, saveErr = saver.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{Answers: []AnswerInput{answer(f.q2, multiKeyAC)}})
		}()
		<-g.entered
		go func() {
			defer wg.Done()
			submitted, submitErr = f.service.Submit(ctx, f.student, attempt.ID)
		}()
		close(g.release)
		wg.Wait()

		require.NoError(t, saveErr)
		require.NoError(t, submitErr)
		assert.Equal(t, 15.0, *submitted.TotalScore)

		full, err := f.service.GetFull(ctx, f.student, attempt.ID)
		require.NoError(t, err)
		require.Len(t, full.Answers, 2)
		for _, a := range full.Answers {
			assert.True(t, a.IsGraded)
		}
	})

	t.Run("save after submit is rejected", func(t *testing.T) {
		f := newAttemptFixture(t, now)
		ctx := context.Background()
		attempt, err := f.service.StartOrResume(ctx, f.student, f.exam.ID)
		require.NoError(t, err)
		_, err = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{Answers: []AnswerInput{answer(f.q1, singleKeyB)}})
		require.NoError(t, err)

		g := newGate()
		submitter := newAttemptServiceAt(gatedRepo{Repository: f.store.repo, score: g}, f.publisher, now)

		var (
			wg        sync.WaitGroup
			saveErr   error
			submitErr error
			submitted *models.ExamAttempt
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			submitted, submitErr = submitter.Submit(ctx, f.student, attempt.ID)
		}()
		<-g.entered
		go func() {
			defer wg.Done()
			_, saveErr = f.service.SaveProgress(ctx, f.student, attempt.ID, &SaveProgressRequest{Answers: []AnswerInput{answer(f.q2, multiKeyAC)}})
		}()
		close(g.release)
		wg.Wait()

		require.NoError(t, submitErr)
		assert.Equal(t, 5.0, *submitted.TotalScore)
		assert.ErrorIs(t, saveErr, ErrAttemptClosed)
		assert.Equal(t, int64(0), f.store.count(&models.AttemptAnswer{}, "attempt_id = ? AND question_id = ?", attempt.ID, f.q2.ID))
	})
}

func compactJSON(t *testing.T, raw []byte) string {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal(raw, &v))
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}
