package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/session"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse wraps successful responses that carry no natural body.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString("request_id"),
	)
	h.logger.Info(msg, args...)
}

// parseUintParam parses a numeric path parameter. On failure it writes
// the error response and returns 0; callers should return immediately.
func (h *BaseHandler) parseUintParam(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid " + name + " parameter",
		})
		return 0
	}
	return uint(value)
}

// handleServiceError maps domain errors to HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Details: validationErrs.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, session.ErrExamNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		repositories.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, session.ErrUnknownQuestion),
		errors.Is(err, session.ErrInvalidOption),
		errors.Is(err, session.ErrAnswerTypeMismatch),
		errors.Is(err, session.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	case errors.Is(err, session.ErrSessionNotActive),
		errors.Is(err, session.ErrSessionCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, session.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "submission_in_flight",
			Message: "A submission is already in progress",
		})
	case errors.Is(err, session.ErrOffline):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "offline",
			Message: "Cannot reach the exam service, your answers are saved locally",
		})
	case errors.Is(err, session.ErrSubmissionRejected):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "submission_rejected",
			Message: err.Error(),
		})
	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
	}
}
