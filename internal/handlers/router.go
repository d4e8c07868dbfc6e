package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HandlerManager struct {
	authHandler     *AuthHandler
	attemptHandler  *AttemptHandler
	examHandler     *ExamHandler
	questionHandler *QuestionHandler

	tokens         *auth.TokenManager
	health         HealthChecker
	logger         utils.Logger
	requestTimeout time.Duration
}

// Dependencies lists everything the HTTP layer needs; main builds it explicitly.
type Dependencies struct {
	Auth           *AuthHandler
	Attempts       *AttemptHandler
	Exams          *ExamHandler
	Questions      *QuestionHandler
	Tokens         *auth.TokenManager
	Health         HealthChecker
	Logger         utils.Logger
	RequestTimeout time.Duration
}

func NewHandlerManager(deps Dependencies) *HandlerManager {
	return &HandlerManager{
		authHandler:     deps.Auth,
		attemptHandler:  deps.Attempts,
		examHandler:     deps.Exams,
		questionHandler: deps.Questions,
		tokens:          deps.Tokens,
		health:          deps.Health,
		logger:          deps.Logger,
		requestTimeout:  deps.RequestTimeout,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(
		utils.ContextLogger(hm.logger),
		utils.LoggerMiddleware(hm.logger),
		RequestTimeout(hm.requestTimeout),
	)

	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", hm.authHandler.Register)
			authRoutes.POST("/login", hm.authHandler.Login)
			authRoutes.POST("/refresh", hm.authHandler.Refresh)
			authRoutes.GET("/me", RequireAuth(hm.tokens), hm.authHandler.Me)
			authRoutes.PUT("/me", RequireAuth(hm.tokens), hm.authHandler.UpdateProfile)
			authRoutes.DELETE("/me", RequireAuth(hm.tokens), hm.authHandler.Deactivate)
		}

		secured := v1.Group("", RequireAuth(hm.tokens))
		admin := RequireRole(models.RoleAdmin)

		// Attempt routes
		attempts := secured.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListMine)
			attempts.POST("/:id/progress", hm.attemptHandler.SaveProgress)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/summary", hm.attemptHandler.GetSummary)
			attempts.GET("/:id/full", hm.attemptHandler.GetFull)
		}

		// Exam routes
		exams := secured.Group("/exams")
		{
			exams.GET("/available", hm.examHandler.GetAvailableExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.GET("", admin, hm.examHandler.ListExams)
			exams.POST("", admin, hm.examHandler.CreateExam)
			exams.PATCH("/:id", admin, hm.examHandler.UpdateExam)
			exams.GET("/:id/results/export", admin, hm.examHandler.ExportResults)
		}

		// Question bank routes
		questions := secured.Group("/questions", admin)
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}
	}
}

// HealthCheck pings the database
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if hm.health != nil {
		if err := hm.health.Ping(c.Request.Context()); err != nil {
			hm.logger.Warn("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "exam-attempt-service",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exam-attempt-service",
	})
}
