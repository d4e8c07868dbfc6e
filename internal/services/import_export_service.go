package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	resultsSheet = "Results"
	timeLayout   = "2006-01-02 15:04:05"
)

var requiredImportColumns = []string{"title", "ques_type", "max_score"}

type importExportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewImportExportService(repo repositories.Repository, validator *validator.Validator, logger *slog.Logger) ImportExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &importExportService{
		repo:      repo,
		logger:    logger.With("service", "import_export"),
		validator: validator,
	}
}

// ===== IMPORT OPERATIONS =====

// ImportQuestions reads a question sheet (.xlsx, or .csv) and inserts every valid row in one transaction.
func (s *importExportService) ImportQuestions(ctx context.Context, r io.Reader, filename string) (*models.QuestionImportSummary, error) {
	s.logger.Info("Starting question import", "filename", filename)

	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx":
		rows, err = readExcelRows(r)
	case ".csv":
		rows, err = readCSVRows(r)
	default:
		return nil, ValidationErrors{*NewValidationError("file", "must be an .xlsx or .csv file", ext)}
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ValidationErrors{*NewValidationError("file", "sheet is empty", filename)}
	}

	headerMap := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredImportColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, ValidationErrors{*NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)}
		}
	}

	summary := &models.QuestionImportSummary{Errors: make([]models.ImportRowError, 0)}
	var questions []*models.Question

	for i, record := range rows[1:] {
		if isBlankRow(record) {
			continue
		}
		summary.TotalRowsParsed++

		question, rowErrors := s.parseRow(record, headerMap, i+2)
		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) > 0 {
		err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
			return s.repo.Question().CreateBatch(ctx, tx, questions)
		})
		if err != nil {
			s.logger.Error("Question import commit failed", "error", err)
			summary.Errors = append(summary.Errors, models.ImportRowError{Message: importCommitFailed})
			summary.ImportSuccessful = false
			return summary, nil
		}
	}

	summary.NewQuestionsCreated = len(questions)
	summary.ImportSuccessful = true

	s.logger.Info("Question import completed",
		"total_rows", summary.TotalRowsParsed,
		"created", summary.NewQuestionsCreated,
		"error_count", len(summary.Errors))
	return summary, nil
}

// importCommitFailed is reported to clients in place of the storage error.
const importCommitFailed = "questions could not be saved, no rows were imported"

func readExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("file", "not a readable Excel workbook", err.Error())}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ValidationErrors{*NewValidationError("file", "Excel file has no sheets", nil)}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return rows, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("file", "not a readable CSV file", err.Error())}
	}
	return rows, nil
}

func (s *importExportService) parseRow(record []string, headerMap map[string]int, rowNum int) (*models.Question, []models.ImportRowError) {
	var rowErrors []models.ImportRowError

	getColumn := func(name string) string {
		if index, ok := headerMap[name]; ok && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	fail := func(column, message, value string) {
		rowErrors = append(rowErrors, models.ImportRowError{Row: rowNum, Column: column, Message: message, Value: value})
	}

	question := &models.Question{
		Title:      getColumn("title"),
		Complexity: getColumn("complexity"),
		Type:       models.QuestionType(strings.ToLower(getColumn("ques_type"))),
		Tags:       datatypes.JSONSlice[string](normalizeTags(strings.Split(getColumn("tags"), ","))),
	}

	rawScore := getColumn("max_score")
	score, err := strconv.Atoi(rawScore)
	if err != nil {
		fail("max_score", "must be a whole number", rawScore)
	}
	question.MaxScore = score

	if raw := getColumn("options"); raw != "" {
		if !json.Valid([]byte(raw)) {
			fail("options", "must be a JSON object", raw)
		} else {
			question.Options = datatypes.JSON(raw)
		}
	}

	if raw := getColumn("correct_answers"); raw != "" {
		question.CorrectAnswers = parseAnswerKey(question.Type, raw)
	}

	if len(rowErrors) > 0 {
		return nil, rowErrors
	}

	if err := s.validator.Question().ValidateQuestion(question); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				fail(ve.Field, ve.Message, fmt.Sprint(ve.Value))
			}
		} else {
			fail("", err.Error(), "")
		}
		return nil, rowErrors
	}
	return question, nil
}

// parseAnswerKey accepts JSON, a comma separated list of option keys, or
// a plain model answer for text questions.
func parseAnswerKey(qType models.QuestionType, raw string) datatypes.JSON {
	if json.Valid([]byte(raw)) {
		return datatypes.JSON(raw)
	}
	if qType == models.TextQuestion {
		encoded, _ := json.Marshal(models.TextAnswer{ModelAnswer: raw})
		return datatypes.JSON(encoded)
	}
	keys := make([]string, 0)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	encoded, _ := json.Marshal(models.ChoiceAnswer{Selected: keys})
	return datatypes.JSON(encoded)
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ===== EXPORT OPERATIONS =====

// ExportExamResults writes one spreadsheet row per attempt of examID.
func (s *importExportService) ExportExamResults(ctx context.Context, examID uuid.UUID, w io.Writer) error {
	if _, err := s.repo.Exam().GetByID(ctx, nil, examID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return storageError("get exam", err)
	}

	rows, err := s.repo.Attempt().ListSummariesByExam(ctx, nil, examID)
	if err != nil {
		return storageError("list attempt summaries", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	header := make([]interface{}, len(models.ResultExportColumns))
	for i, col := range models.ResultExportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		values := []interface{}{
			row.AttemptID.String(),
			derefString(row.UserEmail),
			row.StartTime.UTC().Format(timeLayout),
			formatOptionalTime(row.EndTime),
			row.IsSubmitted,
			"",
			row.GradedCount,
		}
		if row.TotalScore != nil {
			values[5] = *row.TotalScore
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exam results exported", "exam_id", examID, "attempts", len(rows))
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

