package session

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// ===== EXTERNAL COLLABORATORS =====

// ExamService is the upstream exam system. GetExamDetails returns
// ErrExamNotFound for an unknown exam; SubmitExamAnswers persists the
// final answer list atomically or fails without partial effect.
type ExamService interface {
	GetExamDetails(ctx context.Context, examID uint) (*models.ExamDefinition, error)
	SubmitExamAnswers(ctx context.Context, examID uint, studentID string, answers []models.AnswerSubmission) error
}

// ConnectivityProbe is a cheap, best-effort reachability check consulted
// before any submission attempt.
type ConnectivityProbe interface {
	IsOnline(ctx context.Context) bool
}

// ProbeFunc adapts a plain function to ConnectivityProbe.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) IsOnline(ctx context.Context) bool { return f(ctx) }

// AlwaysOnline is the probe used when no connectivity signal exists.
var AlwaysOnline = ProbeFunc(func(context.Context) bool { return true })

// FrameSource is a live camera stream owned by the environment monitor
// for the session's lifetime. Close releases the underlying device and
// is safe to call once.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

type CameraConstraints struct {
	// Owner binds the stream to its session; relay-style devices route
	// incoming frames by this key.
	Owner  string
	Width  int
	Height int
}

// MediaDevice grants access to a camera. AcquireCamera fails when no
// device exists or permission is denied; that failure is never fatal to
// the session.
type MediaDevice interface {
	AcquireCamera(ctx context.Context, constraints CameraConstraints) (FrameSource, error)
}

// AnomalyClassifier inspects a single frame. It may be slow and may
// fail; errors are treated as a SAFE verdict.
type AnomalyClassifier interface {
	Classify(ctx context.Context, frame []byte) (models.Verdict, error)
}

// ===== REQUEST/RESPONSE DTOs =====

type StartSessionRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

// SetAnswerRequest carries exactly one response variant, matching the
// question's type: Select for single/judge, Toggle for multiple, Text
// for short. Text may be the empty string to clear a short answer.
type SetAnswerRequest struct {
	QuestionID uint    `json:"question_id" validate:"required"`
	Select     *string `json:"select,omitempty" validate:"omitempty,option_key"`
	Toggle     *string `json:"toggle,omitempty" validate:"omitempty,option_key"`
	Text       *string `json:"text,omitempty"`
}

type NavigateRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// SessionView is the externally visible snapshot of a session.
type SessionView struct {
	SessionID        string               `json:"session_id"`
	ExamID           uint                 `json:"exam_id"`
	ExamName         string               `json:"exam_name"`
	StudentID        string               `json:"student_id"`
	Status           models.SessionStatus `json:"status"`
	Resumed          bool                 `json:"resumed"`
	TimeRemaining    int                  `json:"time_remaining"` // seconds
	CurrentIndex     int                  `json:"current_index"`
	Answers          map[uint]string      `json:"answers"`
	AnsweredCount    int                  `json:"answered_count"`
	TotalQuestions   int                  `json:"total_questions"`
	Monitor          models.MonitorState  `json:"monitor"`
	Questions        []models.QuestionRef `json:"questions,omitempty"`
}
