package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExamHandler struct {
	BaseHandler
	examService         services.ExamService
	importExportService services.ImportExportService
	now                 func() time.Time
}

func NewExamHandler(examService services.ExamService, importExportService services.ImportExportService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler:         NewBaseHandler(logger),
		examService:         examService,
		importExportService: importExportService,
		now:                 time.Now,
	}
}

// CreateExam creates a draft exam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} models.ExamWithQuestions
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.CreateExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating exam", "questions", len(req.QuestionIDs))

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

// UpdateExam applies a partial update
// @Summary Update exam
// @Tags exams
// @Param id path string true "Exam ID"
// @Param exam body services.UpdateExamRequest true "Fields to change"
// @Success 200 {object} models.ExamWithQuestions
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id} [patch]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating exam", "exam_id", id)

	exam, err := h.examService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// GetAvailableExams lists published exams open right now
func (h *ExamHandler) GetAvailableExams(c *gin.Context) {
	exams, err := h.examService.GetAvailable(c.Request.Context(), h.now())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

func (h *ExamHandler) ListExams(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.ExamFilters{Limit: limit, Offset: offset}
	if status := c.Query("status"); status != "" {
		s := models.ExamStatus(status)
		filters.Status = &s
	}

	exams, total, err := h.examService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	limit, offset = repositories.Page(limit, offset)
	c.JSON(http.StatusOK, ListResponse{Items: exams, Total: total, Limit: limit, Offset: offset})
}

// ExportResults streams an xlsx workbook with one row per attempt
// @Summary Export exam results
// @Tags exams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Exam ID"
// @Router /exams/{id}/results/export [get]
func (h *ExamHandler) ExportResults(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	// buffered so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.importExportService.ExportExamResults(c.Request.Context(), id, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="exam-%s-results.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
