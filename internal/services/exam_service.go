package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type examService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	cacheTTL  time.Duration
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
}

func NewExamService(repo repositories.Repository, cacheService cache.CacheService, cacheTTL time.Duration, publisher events.EventPublisher, validator *validator.Validator, logger *slog.Logger) ExamService {
	if cacheService == nil {
		cacheService = cache.NewNoopCache()
	}
	return &examService{
		repo:      repo,
		cache:     cacheService,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		validator: validator,
		logger:    NewServiceLogger(logger, "exam"),
	}
}

// ===== WRITE OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest) (*models.ExamWithQuestions, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := checkWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:           req.Title,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          models.ExamDraft,
	}

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.checkQuestionRefs(ctx, tx, req.QuestionIDs); err != nil {
			return err
		}
		if err := s.repo.Exam().Create(ctx, tx, exam); err != nil {
			return storageError("create exam", err)
		}
		if err := s.repo.ExamQuestion().ReplaceQuestions(ctx, tx, exam.ID, req.QuestionIDs); err != nil {
			return storageError("store exam questions", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Logger().Info("Exam created", "exam_id", exam.ID, "questions", len(req.QuestionIDs))
	return &models.ExamWithQuestions{Exam: *exam, QuestionIDs: req.QuestionIDs}, nil
}

func (s *examService) Update(ctx context.Context, id uuid.UUID, req *UpdateExamRequest) (*models.ExamWithQuestions, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var (
		result    *models.ExamWithQuestions
		published bool
	)
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		exam, err := s.repo.Exam().GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return storageError("get exam", err)
		}
		previous := exam.Status

		// content is frozen outside Draft and for good once anyone has started the exam
		attempted, err := s.repo.Attempt().ExistsForExam(ctx, tx, id)
		if err != nil {
			return storageError("check exam attempts", err)
		}
		frozen := func(reason string) error {
			return NewBusinessRuleError(RuleExamFrozen, ErrExamFrozen, map[string]interface{}{
				"exam_id":   id,
				"status":    previous,
				"attempted": attempted,
				"reason":    reason,
			})
		}

		if req.Title != nil {
			exam.Title = *req.Title
		}
		if req.StartTime != nil {
			exam.StartTime = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			exam.EndTime = req.EndTime.UTC()
		}
		if req.DurationMinutes != nil {
			exam.DurationMinutes = *req.DurationMinutes
		}
		if err := checkWindow(exam.StartTime, exam.EndTime); err != nil {
			return err
		}
		if req.Status != nil {
			if !previous.CanTransitionTo(*req.Status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, previous, *req.Status)
			}
			if attempted && *req.Status == models.ExamDraft && previous != models.ExamDraft {
				return frozen("exam has attempts and cannot return to Draft")
			}
			exam.Status = *req.Status
		}

		if req.QuestionIDs != nil {
			if previous != models.ExamDraft || attempted {
				return frozen("question list cannot change")
			}
			if err := s.checkQuestionRefs(ctx, tx, *req.QuestionIDs); err != nil {
				return err
			}
			if err := s.repo.ExamQuestion().ReplaceQuestions(ctx, tx, id, *req.QuestionIDs); err != nil {
				return storageError("replace exam questions", err)
			}
		}

		if err := s.repo.Exam().Update(ctx, tx, exam); err != nil {
			return storageError("update exam", err)
		}

		ids, err := s.repo.ExamQuestion().GetQuestionIDs(ctx, tx, id)
		if err != nil {
			return storageError("get exam questions", err)
		}
		result = &models.ExamWithQuestions{Exam: *exam, QuestionIDs: ids}
		published = previous != models.ExamPublished && exam.Status == models.ExamPublished
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	if published {
		s.publish(ctx, events.EventExamPublished, events.ExamPublishedEvent{
			ExamID:    result.ID,
			Title:     result.Title,
			StartTime: result.StartTime,
			EndTime:   result.EndTime,
		})
	}
	return result, nil
}

// ===== READ OPERATIONS =====

func (s *examService) GetByID(ctx context.Context, id uuid.UUID) (*models.ExamWithQuestions, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, storageError("get exam", err)
	}
	ids, err := s.repo.ExamQuestion().GetQuestionIDs(ctx, nil, id)
	if err != nil {
		return nil, storageError("get exam questions", err)
	}
	return &models.ExamWithQuestions{Exam: *exam, QuestionIDs: ids}, nil
}

// GetAvailable lists Published exams whose window contains now, bounds included.
func (s *examService) GetAvailable(ctx context.Context, now time.Time) ([]*models.Exam, error) {
	published, err := s.publishedExams(ctx)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	available := make([]*models.Exam, 0, len(published))
	for _, exam := range published {
		if exam.IsAvailableAt(now) {
			available = append(available, exam)
		}
	}
	return available, nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, 0, ValidationErrors{*NewValidationError("status", "must be one of Draft, Published, Archived", *filters.Status)}
	}
	exams, total, err := s.repo.Exam().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, storageError("list exams", err)
	}
	return exams, total, nil
}

// ===== HELPERS =====

func (s *examService) publishedExams(ctx context.Context) ([]*models.Exam, error) {
	var cached []*models.Exam
	err := s.cache.Get(ctx, cache.PublishedExamsKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Logger().Warn("Published exam cache unavailable", "error", err)
	}

	exams, err := s.repo.Exam().ListByStatus(ctx, nil, models.ExamPublished)
	if err != nil {
		return nil, storageError("list published exams", err)
	}
	if err := s.cache.Set(ctx, cache.PublishedExamsKey, exams, s.cacheTTL); err != nil {
		s.logger.Logger().Warn("Failed to cache published exams", "error", err)
	}
	return exams, nil
}

func (s *examService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, cache.ExamKeyPattern); err != nil {
		s.logger.Logger().Warn("Failed to invalidate exam cache", "error", err)
	}
}

// checkQuestionRefs fails with ErrInvalidReference unless every id resolves.
func (s *examService) checkQuestionRefs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	found, err := s.repo.Question().CountExisting(ctx, tx, ids)
	if err != nil {
		return storageError("resolve questions", err)
	}
	if int(found) != len(ids) {
		return fmt.Errorf("%w: %d of %d questions exist", ErrInvalidReference, found, len(ids))
	}
	return nil
}

func (s *examService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Logger().Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func checkWindow(start, end time.Time) error {
	if !start.Before(end) {
		return ValidationErrors{*NewValidationError("end_time", "must be after start_time", end)}
	}
	return nil
}
