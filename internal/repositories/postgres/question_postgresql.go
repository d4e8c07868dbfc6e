package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// ===== BASIC OPERATIONS =====

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	return translate(q.getDB(tx).WithContext(ctx).Create(question).Error, "failed to create question")
}

// CreateBatch inserts questions in chunks of 100
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return translate(q.getDB(tx).WithContext(ctx).CreateInBatches(questions, 100).Error, "failed to create questions")
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Question, error) {
	var question models.Question
	if err := q.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&question).Error; err != nil {
		return nil, fmt.Errorf("failed to get question %s: %w", id, err)
	}
	return &question, nil
}

// GetByIDs returns the stored subset of ids; missing ids are skipped.
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.getDB(tx).WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	result := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", question.ID).
		Select("title", "complexity", "ques_type", "options", "correct_answers", "max_score", "tags", "updated_at").
		Updates(question)
	if result.Error != nil {
		return fmt.Errorf("failed to update question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update question %s: %w", question.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := q.getDB(tx).WithContext(ctx).Where("id = ?", id).Delete(&models.Question{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete question %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ===== QUERIES =====

func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var questions []*models.Question
	var total int64

	// apply filter first
	query := q.getDB(tx).WithContext(ctx).Model(&models.Question{})
	query = q.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	limit, offset := repositories.Page(filters.Limit, filters.Offset)
	if err := query.Order("created_at DESC").Order("id").Limit(limit).Offset(offset).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) CountExisting(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := q.getDB(tx).WithContext(ctx).Model(&models.Question{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func (q *QuestionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.QuestionFilters) *gorm.DB {
	if filters.Type != nil {
		query = query.Where("ques_type = ?", *filters.Type)
	}
	if filters.Complexity != "" {
		query = query.Where("complexity = ?", filters.Complexity)
	}
	// every requested tag must be an element of the stored array
	for _, tag := range filters.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		query = query.Where(datatypes.JSONArrayQuery("tags").Contains(tag))
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(complexity) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally under ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
