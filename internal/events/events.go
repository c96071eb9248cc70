package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "exam-session-service"
	EventVersion = "1.0"
)

// Event types emitted by the session engine.
const (
	TypeSessionStarted   = "session.started"
	TypeSessionSubmitted = "session.submitted"
	TypeSubmitFailed     = "session.submit_failed"
	TypeProctorWarning   = "proctor.warning"
)

type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an event with identity and envelope fields filled in.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type SessionStartedEvent struct {
	SessionID string `json:"session_id"`
	ExamID    uint   `json:"exam_id"`
	StudentID string `json:"student_id"`
	Resumed   bool   `json:"resumed"`
	Deadline  string `json:"deadline"`
}

type SessionSubmittedEvent struct {
	SessionID     string `json:"session_id"`
	ExamID        uint   `json:"exam_id"`
	StudentID     string `json:"student_id"`
	AnswerCount   int    `json:"answer_count"`
	EndReason     string `json:"end_reason"`
	WarningCount  int    `json:"warning_count"`
	TimeRemaining int    `json:"time_remaining"`
}

type SubmitFailedEvent struct {
	SessionID string `json:"session_id"`
	ExamID    uint   `json:"exam_id"`
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

type ProctorWarningEvent struct {
	SessionID    string `json:"session_id"`
	ExamID       uint   `json:"exam_id"`
	StudentID    string `json:"student_id"`
	WarningCount int    `json:"warning_count"`
}
