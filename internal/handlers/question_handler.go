package handlers

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// maxImportSize caps the multipart file accepted by ImportQuestions
const maxImportSize = 10 << 20

type QuestionHandler struct {
	BaseHandler
	questionService     services.QuestionService
	importExportService services.ImportExportService
}

func NewQuestionHandler(
	questionService services.QuestionService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:         NewBaseHandler(logger),
		questionService:     questionService,
		importExportService: importExportService,
	}
}

// CreateQuestion creates a new question
// @Summary Create question
// @Description Creates a new question with the provided details
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.QuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	h.LogRequest(c, "Creating question")

	var req services.QuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// ListQuestions filters the question bank
// @Summary List questions
// @Tags questions
// @Produce json
// @Param ques_type query string false "Question type"
// @Param complexity query string false "Complexity"
// @Param tags query string false "Comma separated tags, all required"
// @Param search_term query string false "Matches title or complexity"
// @Success 200 {object} ListResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var filters repositories.QuestionFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidation, "Invalid query parameters", err.Error())
		return
	}
	filters.Tags = splitTags(filters.Tags)

	questions, total, err := h.questionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	limit, offset := repositories.Page(filters.Limit, filters.Offset)
	c.JSON(http.StatusOK, ListResponse{Items: questions, Total: total, Limit: limit, Offset: offset})
}

// UpdateQuestion replaces the content of a question
// @Summary Update question
// @Tags questions
// @Param id path string true "Question ID"
// @Param question body services.QuestionRequest true "Question data"
// @Success 200 {object} models.Question
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Updating question", "question_id", id)

	var req services.QuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportQuestions loads questions from an uploaded .xlsx or .csv sheet
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Param file formData file true "Question sheet"
// @Success 200 {object} models.QuestionImportSummary
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	header, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidation, "Missing upload", "multipart field 'file' is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidation, "Unreadable upload", err.Error())
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "filename", header.Filename, "size", header.Size)

	summary, err := h.importExportService.ImportQuestions(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// splitTags accepts both ?tags=a,b and ?tags=a&tags=b
func splitTags(raw []string) []string {
	var tags []string
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
