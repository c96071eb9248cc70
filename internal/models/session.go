package models

import (
	"time"
)

type SessionStatus string

const (
	SessionLoading    SessionStatus = "loading"
	SessionActive     SessionStatus = "active"
	SessionSubmitting SessionStatus = "submitting"
	SessionCompleted  SessionStatus = "completed"
)

const (
	SessionEndReasonTimeout = "time_out"
	SessionEndReasonManual  = "manual"
)

// Verdict is the outcome of one proctoring sample.
type Verdict string

const (
	VerdictSafe Verdict = "SAFE"
	VerdictWarn Verdict = "WARN"
)

// MonitorState mirrors the proctoring side of a session: whether the
// camera was granted, the latest sample verdict and the cumulative
// warning count.
type MonitorState struct {
	Active       bool      `json:"active"`
	LastVerdict  Verdict   `json:"last_verdict"`
	WarningCount int       `json:"warning_count"`
	LastSampleAt time.Time `json:"last_sample_at"`
}

// SubmittedAnswer is one graded (or pending) response row persisted when
// a session submits.
type SubmittedAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ExamID     uint   `json:"exam_id" gorm:"not null;index:idx_exam_student"`
	StudentID  string `json:"student_id" gorm:"not null;index:idx_exam_student;size:255"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Response   string `json:"response" gorm:"type:text"`

	// Grading
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
	IsCorrect *bool   `json:"is_correct"` // nil until graded; stays nil for manual grading
	IsGraded  bool    `json:"is_graded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (SubmittedAnswer) TableName() string {
	return "submitted_answers"
}

// ScoreRecord aggregates one student's auto-graded total for an exam.
type ScoreRecord struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	ExamID     uint    `json:"exam_id" gorm:"not null;uniqueIndex:idx_score_exam_student"`
	StudentID  string  `json:"student_id" gorm:"not null;uniqueIndex:idx_score_exam_student;size:255"`
	TotalScore float64 `json:"total_score"`
	MaxScore   int     `json:"max_score"`
	IsFinal    bool    `json:"is_final"` // false while short answers await manual grading

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScoreRecord) TableName() string {
	return "score_records"
}
