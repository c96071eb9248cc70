package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/config"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/proctor"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/session"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	examHandler    *ExamHandler
	resultsHandler *ResultsHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	manager *session.Manager,
	examService services.ExamService,
	exportService services.ExportService,
	relay *proctor.FrameRelay,
	validator *validator.Validator,
	logger *slog.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(manager, relay, validator, logger),
		examHandler:    NewExamHandler(examService, logger),
		resultsHandler: NewResultsHandler(examService, exportService, logger),
		authMiddleware: NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Session routes - students drive their own sessions
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent), hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.PUT("/:id/answer", hm.sessionHandler.SetAnswer)
			sessions.PUT("/:id/navigate", hm.sessionHandler.Navigate)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.POST("/:id/frames", hm.sessionHandler.PushFrame)
		}

		// Exam catalog and result routes
		exams := v1.Group("/exams")
		{
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:exam_id/results", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleProctor), hm.resultsHandler.GetExamResults)
			exams.GET("/:exam_id/results/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.resultsHandler.ExportResults)
			exams.GET("/:exam_id/results/:student_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleProctor), hm.resultsHandler.GetStudentResult)
			exams.GET("/:exam_id/my-result", hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent), hm.resultsHandler.GetMyResult)
		}
	}
}

// HealthCheck endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "exam-session-service",
	})
}
