package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/grading"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type attemptService struct {
	repo      repositories.Repository
	engine    *grading.Engine
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
	now       Clock
}

type AttemptServiceOption func(*attemptService)

// WithAttemptClock overrides the time source
func WithAttemptClock(now Clock) AttemptServiceOption {
	return func(s *attemptService) { s.now = now }
}

// WithGradingEngine overrides the engine used at submission
func WithGradingEngine(engine *grading.Engine) AttemptServiceOption {
	return func(s *attemptService) { s.engine = engine }
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, validator *validator.Validator, logger *slog.Logger, opts ...AttemptServiceOption) AttemptService {
	s := &attemptService{
		repo:      repo,
		engine:    grading.NewEngine(),
		publisher: publisher,
		validator: validator,
		logger:    NewServiceLogger(logger, "attempt"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *attemptService) clock() time.Time {
	return s.now().UTC()
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) StartOrResume(ctx context.Context, actor Actor, examID uuid.UUID) (attempt *models.ExamAttempt, err error) {
	op := s.logger.WithOperation(ctx, "start_attempt", actor.UserID)
	defer func() { op.LogResult(examID, "exam", err) }()

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, storageError("get exam", err)
	}
	// unpublished exams are invisible to attempt takers
	if exam.Status != models.ExamPublished {
		return nil, ErrExamNotFound
	}

	active, err := s.activeAttempt(ctx, actor.UserID, examID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		s.logger.Logger().Info("Resuming existing attempt", "attempt_id", active.ID, "user_id", actor.UserID)
		return active, nil
	}

	now := s.clock()
	if !exam.AcceptsNewAttemptAt(now) {
		return nil, ErrOutOfWindow
	}

	attempt = &models.ExamAttempt{
		UserID:    actor.UserID,
		ExamID:    examID,
		StartTime: now,
	}
	// the shared lock keeps an exam edit from unpublishing the exam under a new attempt
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.Exam().GetByIDShared(ctx, tx, examID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return storageError("lock exam", err)
		}
		if locked.Status != models.ExamPublished {
			return ErrExamNotFound
		}
		return s.repo.Attempt().Create(ctx, tx, attempt)
	})
	if err != nil {
		if !repositories.IsDuplicateKeyError(err) {
			if IsNotFound(err) || IsStorageFailure(err) {
				return nil, err
			}
			return nil, storageError("create attempt", err)
		}
		// lost the race against a concurrent start; hand back the winner
		active, err = s.activeAttempt(ctx, actor.UserID, examID)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, fmt.Errorf("%w: active attempt vanished after conflict", ErrConflict)
		}
		return active, nil
	}

	s.publish(ctx, events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		ExamID:    attempt.ExamID,
		UserID:    attempt.UserID,
		StartTime: attempt.StartTime,
	})
	return attempt, nil
}

func (s *attemptService) activeAttempt(ctx context.Context, userID, examID uuid.UUID) (*models.ExamAttempt, error) {
	active, err := s.repo.Attempt().GetActive(ctx, nil, userID, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, storageError("get active attempt", err)
	}
	return active, nil
}

func (s *attemptService) SaveProgress(ctx context.Context, actor Actor, attemptID uuid.UUID, req *SaveProgressRequest) (saved []models.AttemptAnswer, err error) {
	op := s.logger.WithOperation(ctx, "save_progress", actor.UserID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	answers, err := collapseAnswers(req.Answers)
	if err != nil {
		return nil, err
	}
	withAttemptID(answers, attemptID)

	questionIDs := make([]uuid.UUID, 0, len(answers))
	for _, a := range answers {
		questionIDs = append(questionIDs, a.QuestionID)
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		// the shared lock keeps a concurrent submit out until this batch commits
		attempt, err := s.repo.Attempt().GetByIDShared(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return storageError("lock attempt", err)
		}
		if err := checkOwner(actor, attempt, "save_progress"); err != nil {
			return err
		}
		if attempt.IsSubmitted {
			return ErrAttemptClosed
		}

		examQuestions, err := s.repo.ExamQuestion().GetQuestionIDs(ctx, tx, attempt.ExamID)
		if err != nil {
			return storageError("get exam questions", err)
		}
		if missing := missingIDs(questionIDs, examQuestions); len(missing) > 0 {
			return fmt.Errorf("%w: questions %v are not part of the exam", ErrInvalidReference, missing)
		}

		if err := s.repo.Answer().Upsert(ctx, tx, answers); err != nil {
			return storageError("upsert answers", err)
		}

		// upserted rows keep their original ids; read back what is stored
		saved, err = s.repo.Answer().GetByAttemptAndQuestions(ctx, tx, attemptID, questionIDs)
		if err != nil {
			return storageError("reload answers", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orderLike(saved, questionIDs), nil
}

func (s *attemptService) Submit(ctx context.Context, actor Actor, attemptID uuid.UUID) (attempt *models.ExamAttempt, err error) {
	op := s.logger.WithOperation(ctx, "submit_attempt", actor.UserID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	current, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(actor, current, "submit"); err != nil {
		return nil, err
	}
	if current.IsSubmitted {
		return nil, ErrAttemptClosed
	}

	var result gradeResult
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		now := s.clock()
		flipped, err := s.repo.Attempt().MarkSubmitted(ctx, tx, attemptID, now)
		if err != nil {
			return storageError("mark submitted", err)
		}
		if !flipped {
			return ErrAttemptClosed
		}

		result, err = s.gradeAnswers(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		if err := s.repo.Attempt().SetTotalScore(ctx, tx, attemptID, result.total); err != nil {
			return storageError("set total score", err)
		}

		attempt, err = s.repo.Attempt().GetByID(ctx, tx, attemptID)
		if err != nil {
			return storageError("reload attempt", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Logger().Info("Attempt submitted",
		"attempt_id", attemptID,
		"total_score", result.total,
		"graded", result.graded,
		"ungraded", result.ungraded)

	s.publish(ctx, events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		UserID:        attempt.UserID,
		TotalScore:    result.total,
		GradedCount:   result.graded,
		UngradedCount: result.ungraded,
		SubmittedAt:   derefTime(attempt.EndTime),
	})
	return attempt, nil
}

type gradeResult struct {
	total    float64
	graded   int
	ungraded int
}

// gradeAnswers scores every objective answer of the attempt inside tx
func (s *attemptService) gradeAnswers(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) (gradeResult, error) {
	var result gradeResult

	rows, err := s.repo.Answer().GetGradable(ctx, tx, attemptID)
	if err != nil {
		return result, storageError("load gradable answers", err)
	}

	for _, row := range rows {
		// question deleted after the answer was saved
		if row.QuestionType == nil || row.MaxScore == nil {
			continue
		}
		if !row.QuestionType.IsAutoGradable() {
			result.ungraded++
			continue
		}

		q := &models.Question{
			ID:             row.QuestionID,
			Type:           *row.QuestionType,
			CorrectAnswers: row.CorrectAnswers,
			MaxScore:       *row.MaxScore,
		}
		score, err := s.engine.Grade(q, row.StudentAnswer)
		if errors.Is(err, grading.ErrNotAutoGradable) {
			result.ungraded++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("grade answer %s: %w", row.AnswerID, err)
		}

		if err := s.repo.Answer().SetGrade(ctx, tx, row.AnswerID, score); err != nil {
			return result, storageError("store grade", err)
		}
		result.total += score
		result.graded++
	}
	return result, nil
}

// ===== READ OPERATIONS =====

func (s *attemptService) GetSummary(ctx context.Context, actor Actor, attemptID uuid.UUID) (*models.AttemptSummary, error) {
	row, err := s.repo.Attempt().GetSummary(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, storageError("get summary", err)
	}
	if !actor.IsAdmin() && row.UserID != actor.UserID {
		return nil, NewPermissionError(actor.UserID, attemptID, "attempt", "view_summary", "not the attempt owner")
	}

	total, err := s.repo.ExamQuestion().CountByExam(ctx, nil, row.ExamID)
	if err != nil {
		return nil, storageError("count exam questions", err)
	}

	summary := &models.AttemptSummary{
		AttemptID:      row.AttemptID,
		ExamID:         row.ExamID,
		ExamTitle:      row.ExamTitle,
		UserID:         row.UserID,
		IsSubmitted:    row.IsSubmitted,
		TotalScore:     row.TotalScore,
		GradedCount:    int(row.GradedCount),
		TotalQuestions: int(total),
	}
	if row.UserEmail != nil {
		summary.UserEmail = *row.UserEmail
	}
	return summary, nil
}

func (s *attemptService) GetFull(ctx context.Context, actor Actor, attemptID uuid.UUID) (*models.AttemptDetail, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(actor, attempt, "view"); err != nil {
		return nil, err
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		return nil, storageError("get answers", err)
	}
	return &models.AttemptDetail{ExamAttempt: *attempt, Answers: answers}, nil
}

func (s *attemptService) ListMine(ctx context.Context, actor Actor, examID *uuid.UUID) ([]*models.ExamAttempt, error) {
	attempts, err := s.repo.Attempt().ListByUser(ctx, nil, actor.UserID, examID)
	if err != nil {
		return nil, storageError("list attempts", err)
	}
	return attempts, nil
}

// ===== HELPERS =====

func (s *attemptService) loadAttempt(ctx context.Context, attemptID uuid.UUID) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, storageError("get attempt", err)
	}
	return attempt, nil
}

func (s *attemptService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Logger().Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func checkOwner(actor Actor, attempt *models.ExamAttempt, action string) error {
	if actor.IsAdmin() || attempt.UserID == actor.UserID {
		return nil
	}
	return NewPermissionError(actor.UserID, attempt.ID, "attempt", action, "not the attempt owner")
}

// collapseAnswers keeps the last payload per question, in first-seen order.
func collapseAnswers(inputs []AnswerInput) ([]*models.AttemptAnswer, error) {
	index := make(map[uuid.UUID]int, len(inputs))
	out := make([]*models.AttemptAnswer, 0, len(inputs))

	for i, in := range inputs {
		if !json.Valid(in.StudentAnswer) {
			return nil, ValidationErrors{*NewValidationError(
				fmt.Sprintf("answers[%d].student_answer", i), "must be valid JSON", string(in.StudentAnswer))}
		}
		payload := datatypes.JSON(append([]byte(nil), in.StudentAnswer...))

		if pos, ok := index[in.QuestionID]; ok {
			out[pos].StudentAnswer = payload
			continue
		}
		index[in.QuestionID] = len(out)
		out = append(out, &models.AttemptAnswer{
			QuestionID:    in.QuestionID,
			StudentAnswer: payload,
		})
	}
	return out, nil
}

func withAttemptID(answers []*models.AttemptAnswer, attemptID uuid.UUID) {
	for _, a := range answers {
		a.AttemptID = attemptID
	}
}

func missingIDs(want, have []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range want {
		if _, ok := set[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// orderLike returns answers sorted by the position of their question in ids.
func orderLike(answers []models.AttemptAnswer, ids []uuid.UUID) []models.AttemptAnswer {
	byQuestion := make(map[uuid.UUID]models.AttemptAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	out := make([]models.AttemptAnswer, 0, len(answers))
	for _, id := range ids {
		if a, ok := byQuestion[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
