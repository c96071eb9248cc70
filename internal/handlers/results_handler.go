package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/services"
)

type ResultsHandler struct {
	BaseHandler
	examService   services.ExamService
	exportService services.ExportService
}

func NewResultsHandler(
	examService services.ExamService,
	exportService services.ExportService,
	logger *slog.Logger,
) *ResultsHandler {
	return &ResultsHandler{
		BaseHandler:   NewBaseHandler(logger),
		examService:   examService,
		exportService: exportService,
	}
}

// GetExamResults returns all graded submissions for an exam.
func (h *ResultsHandler) GetExamResults(c *gin.Context) {
	examID := h.parseUintParam(c, "exam_id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Fetching exam results", "exam_id", examID)

	results, err := h.examService.GetExamResults(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetStudentResult returns one student's result for an exam. Students
// may only fetch their own; the router restricts the generic route to
// teacher and proctor roles.
func (h *ResultsHandler) GetStudentResult(c *gin.Context) {
	examID := h.parseUintParam(c, "exam_id")
	if examID == 0 {
		return
	}
	studentID := c.Param("student_id")

	result, err := h.examService.GetStudentResult(c.Request.Context(), examID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMyResult returns the authenticated student's own result.
func (h *ResultsHandler) GetMyResult(c *gin.Context) {
	examID := h.parseUintParam(c, "exam_id")
	if examID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	result, err := h.examService.GetStudentResult(c.Request.Context(), examID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportResults streams the exam results as an xlsx workbook.
func (h *ResultsHandler) ExportResults(c *gin.Context) {
	examID := h.parseUintParam(c, "exam_id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Exporting exam results", "exam_id", examID)

	file, err := h.exportService.ExportResults(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("exam_%d_results.xlsx", examID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		h.logger.Error("Failed to write export", "exam_id", examID, "error", err)
	}
}
