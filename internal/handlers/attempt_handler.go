package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

type StartAttemptRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// StartAttempt starts a new attempt or resumes the caller's active one
// @Summary Start or resume attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param request body StartAttemptRequest true "Exam to attempt"
// @Success 200 {object} models.ExamAttempt
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req StartAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Starting attempt", "exam_id", req.ExamID)

	attempt, err := h.attemptService.StartOrResume(c.Request.Context(), actor, req.ExamID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// SaveProgress upserts a batch of answers
// @Summary Save attempt progress
// @Tags attempts
// @Param id path string true "Attempt ID"
// @Param request body services.SaveProgressRequest true "Answers"
// @Success 200 {array} models.AttemptAnswer
// @Router /attempts/{id}/progress [post]
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SaveProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	answers, err := h.attemptService.SaveProgress(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// SubmitAttempt closes the attempt and grades it
// @Summary Submit attempt
// @Tags attempts
// @Param id path string true "Attempt ID"
// @Success 200 {object} models.ExamAttempt
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", id)

	attempt, err := h.attemptService.Submit(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *AttemptHandler) GetSummary(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.attemptService.GetSummary(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AttemptHandler) GetFull(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.attemptService.GetFull(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListMine lists the caller's attempts, optionally for one exam
func (h *AttemptHandler) ListMine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	examID, ok := parseOptionalUUIDQuery(c, "exam_id")
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListMine(c.Request.Context(), actor, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}
