package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/proctor"
	"github.com/SAP-F-2025/exam-session-service/internal/session"
	"github.com/SAP-F-2025/exam-session-service/internal/store"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type stubExamService struct {
	def       *models.ExamDefinition
	submitErr error
}

func (s *stubExamService) GetExamDetails(_ context.Context, examID uint) (*models.ExamDefinition, error) {
	if s.def == nil || s.def.ExamID != examID {
		return nil, session.ErrExamNotFound
	}
	return s.def, nil
}

func (s *stubExamService) SubmitExamAnswers(_ context.Context, _ uint, _ string, _ []models.AnswerSubmission) error {
	return s.submitErr
}

func quizDefinition() *models.ExamDefinition {
	return &models.ExamDefinition{
		ExamID:          42,
		Name:            "Algorithms Quiz",
		DurationMinutes: 20,
		Questions: []models.QuestionRef{
			{
				QuestionID:  1,
				ScoreWeight: 2,
				Payload: models.QuestionPayload{
					QuestionID: 1,
					Type:       models.QuestionSingle,
					Content:    "Pick one",
					Options:    []models.Option{{Key: "A", Label: "first"}, {Key: "B", Label: "second"}},
				},
			},
			{
				QuestionID:  2,
				ScoreWeight: 3,
				Payload: models.QuestionPayload{
					QuestionID: 2,
					Type:       models.QuestionShort,
					Content:    "Explain",
				},
			},
		},
	}
}

// testRouter wires the session routes behind a stub auth middleware
// that injects the given student identity.
func testRouter(t *testing.T, studentID string) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := session.NewManager(session.Dependencies{
		ExamService: &stubExamService{def: quizDefinition()},
		Drafts:      session.NewDraftStore(store.NewMemoryStore(), logger),
		Logger:      logger,
	})
	t.Cleanup(manager.Shutdown)

	return routerFor(t, manager, studentID), manager
}

// routerFor mounts the session routes on a fresh engine sharing the
// given manager, authenticated as the given student.
func routerFor(t *testing.T, manager *session.Manager, studentID string) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewSessionHandler(manager, proctor.NewFrameRelay(logger), validator.New(), logger)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", studentID)
		c.Set("user_role", models.RoleStudent)
		c.Next()
	})
	router.POST("/sessions", handler.StartSession)
	router.GET("/sessions/:id", handler.GetSession)
	router.PUT("/sessions/:id/answer", handler.SetAnswer)
	router.PUT("/sessions/:id/navigate", handler.Navigate)
	router.POST("/sessions/:id/submit", handler.SubmitSession)
	router.POST("/sessions/:id/frames", handler.PushFrame)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startTestSession(t *testing.T, router *gin.Engine) session.SessionView {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/sessions", session.StartSessionRequest{ExamID: 42})
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	var view session.SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal view: %v", err)
	}
	return view
}

func TestStartSessionReturnsSnapshot(t *testing.T) {
	router, _ := testRouter(t, "student-1")

	view := startTestSession(t, router)
	if view.Status != models.SessionActive {
		t.Errorf("status = %s, want active", view.Status)
	}
	if view.ExamName != "Algorithms Quiz" {
		t.Errorf("exam name = %s", view.ExamName)
	}
	if view.TotalQuestions != 2 || len(view.Questions) != 2 {
		t.Errorf("questions = %d/%d, want 2/2", view.TotalQuestions, len(view.Questions))
	}
}

func TestStartSessionUnknownExam(t *testing.T) {
	router, _ := testRouter(t, "student-1")

	w := doJSON(t, router, http.MethodPost, "/sessions", session.StartSessionRequest{ExamID: 999})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStartSessionValidation(t *testing.T) {
	router, _ := testRouter(t, "student-1")

	w := doJSON(t, router, http.MethodPost, "/sessions", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSetAnswerAndSnapshot(t *testing.T) {
	router, _ := testRouter(t, "student-1")
	view := startTestSession(t, router)

	choice := "A"
	w := doJSON(t, router, http.MethodPut, "/sessions/"+view.SessionID+"/answer", session.SetAnswerRequest{
		QuestionID: 1,
		Select:     &choice,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body %s", w.Code, w.Body.String())
	}

	var updated session.SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Answers[1] != "A" || updated.AnsweredCount != 1 {
		t.Errorf("answers = %v, count = %d", updated.Answers, updated.AnsweredCount)
	}
}

func TestSetAnswerInvalidOption(t *testing.T) {
	router, _ := testRouter(t, "student-1")
	view := startTestSession(t, router)

	choice := "Z"
	w := doJSON(t, router, http.MethodPut, "/sessions/"+view.SessionID+"/answer", session.SetAnswerRequest{
		QuestionID: 1,
		Select:     &choice,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNavigateOutOfRange(t *testing.T) {
	router, _ := testRouter(t, "student-1")
	view := startTestSession(t, router)

	idx := 7
	w := doJSON(t, router, http.MethodPut, "/sessions/"+view.SessionID+"/navigate", session.NavigateRequest{Index: &idx})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitCompletesSession(t *testing.T) {
	router, mgr := testRouter(t, "student-1")
	view := startTestSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/sessions/"+view.SessionID+"/submit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}

	var final session.SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &final); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if final.Status != models.SessionCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if mgr.Count() != 0 {
		t.Errorf("manager count = %d, want 0", mgr.Count())
	}
}

func TestSessionOwnershipEnforced(t *testing.T) {
	router, mgr := testRouter(t, "student-1")
	view := startTestSession(t, router)

	// A different identity against the same manager cannot see the session.
	intruder := routerFor(t, mgr, "student-2")
	w := doJSON(t, intruder, http.MethodGet, "/sessions/"+view.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("intruder status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/sessions/no-such-session", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPushFrameWithoutStream(t *testing.T) {
	router, _ := testRouter(t, "student-1")
	view := startTestSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+view.SessionID+"/frames", bytes.NewReader([]byte{0xff, 0xd8}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// No camera stream was registered (proctoring not started for this
	// session), so the frame is accepted but dropped.
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Message != "no active camera stream" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q", body["status"])
	}
}
