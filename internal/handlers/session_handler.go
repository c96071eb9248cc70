package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/proctor"
	"github.com/SAP-F-2025/exam-session-service/internal/session"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// maxFrameSize caps uploaded proctoring frames at 1 MiB.
const maxFrameSize = 1 << 20

type SessionHandler struct {
	BaseHandler
	manager   *session.Manager
	relay     *proctor.FrameRelay
	validator *validator.Validator
}

func NewSessionHandler(
	manager *session.Manager,
	relay *proctor.FrameRelay,
	validator *validator.Validator,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		manager:     manager,
		relay:       relay,
		validator:   validator,
	}
}

// StartSession starts a new exam session, or resumes the saved one when
// a draft and deadline exist for this student and exam. Calling it again
// while a session is live returns the live session unchanged.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req session.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if errs := h.validator.Validate(req); errs != nil {
		h.handleServiceError(c, errs)
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	h.LogRequest(c, "Starting exam session", "exam_id", req.ExamID, "student_id", userID)

	sess, err := h.manager.Start(c.Request.Context(), userID, req.ExamID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess.Snapshot(true))
}

// GetSession returns the current snapshot of a session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	includeQuestions := c.DefaultQuery("include_questions", "false") == "true"
	c.JSON(http.StatusOK, sess.Snapshot(includeQuestions))
}

// SetAnswer records or clears an answer for one question and writes the
// draft through to durable storage.
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	var req session.SetAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if errs := h.validator.Validate(req); errs != nil {
		h.handleServiceError(c, errs)
		return
	}

	if err := sess.SetAnswer(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot(false))
}

// Navigate moves the session cursor to another question.
func (h *SessionHandler) Navigate(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	var req session.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
		})
		return
	}

	if err := sess.Navigate(*req.Index); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot(false))
}

// SubmitSession finalizes the exam. On connectivity or server failure
// the session stays active and the draft is preserved for a retry.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	h.LogRequest(c, "Submitting exam session", "session_id", sess.ID())

	if err := sess.Submit(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot(false))
}

// PushFrame accepts one webcam frame for proctoring. Frames are routed
// to the session's monitor; missing streams are not an error worth
// failing the client over, monitoring is best effort.
func (h *SessionHandler) PushFrame(c *gin.Context) {
	sess := h.ownedSession(c)
	if sess == nil {
		return
	}

	if h.relay == nil {
		c.JSON(http.StatusOK, SuccessResponse{Message: "proctoring disabled"})
		return
	}

	frame, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFrameSize))
	if err != nil || len(frame) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Missing frame payload",
		})
		return
	}

	if err := h.relay.Push(sess.ID(), frame); err != nil {
		c.JSON(http.StatusOK, SuccessResponse{Message: "no active camera stream"})
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "frame accepted"})
}

// ownedSession resolves the path session for the authenticated student.
// It writes the error response and returns nil when resolution fails.
func (h *SessionHandler) ownedSession(c *gin.Context) *session.Session {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return nil
	}

	sess, err := h.manager.Get(c.Param("id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return nil
	}
	return sess
}
