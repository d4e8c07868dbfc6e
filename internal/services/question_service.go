package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type questionService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    *slog.Logger
}

func NewQuestionService(repo repositories.Repository, validator *validator.Validator, logger *slog.Logger) QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &questionService{
		repo:      repo,
		validator: validator,
		logger:    logger.With("service", "question"),
	}
}

func (s *questionService) Create(ctx context.Context, req *QuestionRequest) (*models.Question, error) {
	question, err := s.buildQuestion(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, storageError("create question", err)
	}

	s.logger.Info("Question created", "question_id", question.ID, "ques_type", question.Type)
	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, storageError("get question", err)
	}
	return question, nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	if filters.Type != nil && !filters.Type.IsValid() {
		return nil, 0, ValidationErrors{*NewValidationError("ques_type", "unsupported question type", *filters.Type)}
	}
	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, storageError("list questions", err)
	}
	return questions, total, nil
}

func (s *questionService) Update(ctx context.Context, id uuid.UUID, req *QuestionRequest) (*models.Question, error) {
	updated, err := s.buildQuestion(req)
	if err != nil {
		return nil, err
	}
	updated.ID = id

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.Question().GetByID(ctx, tx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return storageError("get question", err)
		}

		locked, err := s.repo.ExamQuestion().IsLocked(ctx, tx, id)
		if err != nil {
			return storageError("check question usage", err)
		}
		if locked {
			return NewBusinessRuleError(RuleQuestionFrozen, ErrQuestionFrozen, map[string]interface{}{"question_id": id})
		}

		updated.CreatedAt = current.CreatedAt
		if err := s.repo.Question().Update(ctx, tx, updated); err != nil {
			return storageError("update question", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *questionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		used, err := s.repo.ExamQuestion().IsReferenced(ctx, tx, id)
		if err != nil {
			return storageError("check question usage", err)
		}
		if used {
			return ErrQuestionInUse
		}
		if err := s.repo.Question().Delete(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return storageError("delete question", err)
		}
		return nil
	})
}

// buildQuestion validates req and converts it into a question model.
func (s *questionService) buildQuestion(req *QuestionRequest) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question := &models.Question{
		Title:          strings.TrimSpace(req.Title),
		Complexity:     strings.TrimSpace(req.Complexity),
		Type:           req.Type,
		Options:        jsonOrNil(req.Options),
		CorrectAnswers: jsonOrNil(req.CorrectAnswers),
		MaxScore:       req.MaxScore,
		Tags:           datatypes.JSONSlice[string](normalizeTags(req.Tags)),
	}
	if err := s.validator.Question().ValidateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func jsonOrNil(raw []byte) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(append([]byte(nil), raw...))
}

// normalizeTags trims and de-duplicates tags
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
