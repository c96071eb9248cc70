package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
)

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
}

func NewExamHandler(examService services.ExamService, logger *slog.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
	}
}

// ListExams returns the exam catalog. Students use it to pick an exam
// before starting a session; defaults to Active exams.
func (h *ExamHandler) ListExams(c *gin.Context) {
	req := services.ListExamsRequest{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.ExamStatus(status)
		req.Status = &s
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		req.Offset = offset
	}

	exams, err := h.examService.ListExams(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exams": exams,
		"count": len(exams),
	})
}
