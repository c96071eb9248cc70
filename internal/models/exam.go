package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamPending  ExamStatus = "Pending"
	ExamActive   ExamStatus = "Active"
	ExamFinished ExamStatus = "Finished"
	ExamCanceled ExamStatus = "Canceled"
)

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionJudge    QuestionType = "judge"
	QuestionShort    QuestionType = "short"
)

// IsChoice reports whether the type carries an option list.
func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionJudge:
		return true
	case QuestionShort:
		return false
	}
	return false
}

type Exam struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null" validate:"required,min=1,max=300"`
	Status          ExamStatus `json:"status" gorm:"default:Pending;index" validate:"omitempty,oneof=Pending Active Finished Canceled"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []ExamQuestion `json:"questions" gorm:"foreignKey:ExamID"`
	Creator   User           `json:"creator" gorm:"foreignKey:CreatedBy"`
}

func (Exam) TableName() string {
	return "exams"
}

// ExamQuestion binds a question into an exam with per-exam weight and position.
type ExamQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ExamID     uint `json:"exam_id" gorm:"not null;index"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`
	Score      int  `json:"score" gorm:"not null" validate:"required,min=1,max=100"`
	Position   int  `json:"position" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam     Exam     `json:"exam" gorm:"foreignKey:ExamID"`
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

type Question struct {
	ID      uint         `json:"id" gorm:"primaryKey"`
	Type    QuestionType `json:"type" gorm:"not null;index" validate:"required,oneof=single multiple judge short"`
	Content string       `json:"content" gorm:"type:text;not null" validate:"required"`

	// Ordered option list stored as JSONB ([]Option). Empty for short questions.
	Options datatypes.JSON `json:"options" gorm:"type:jsonb"`

	// Correct answer: option key for single/judge, canonical sorted
	// comma-joined keys for multiple, reference text for short.
	Answer string `json:"answer" gorm:"type:text"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Creator User `json:"creator" gorm:"foreignKey:CreatedBy"`
}

func (Question) TableName() string {
	return "questions"
}

// Option is one selectable choice, keyed by its display letter.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ===== SESSION READ MODEL =====

// ExamDefinition is the sanitized, immutable view of an exam handed to a
// session. Correct answers never appear here.
type ExamDefinition struct {
	ExamID          uint          `json:"exam_id"`
	Name            string        `json:"name"`
	DurationMinutes int           `json:"duration_minutes"`
	Questions       []QuestionRef `json:"questions"`
}

type QuestionRef struct {
	QuestionID  uint            `json:"question_id"`
	ScoreWeight int             `json:"score_weight"`
	Payload     QuestionPayload `json:"payload"`
}

type QuestionPayload struct {
	QuestionID uint         `json:"question_id"`
	Type       QuestionType `json:"type"`
	Content    string       `json:"content"`
	Options    []Option     `json:"options,omitempty"`
}

// Validate enforces the definition invariants: at least one question,
// unique question IDs, a positive duration, and an option list present
// exactly for choice-based types.
func (d *ExamDefinition) Validate() error {
	if d.DurationMinutes <= 0 {
		return fmt.Errorf("exam %d: non-positive duration %d", d.ExamID, d.DurationMinutes)
	}
	if len(d.Questions) == 0 {
		return fmt.Errorf("exam %d: no questions", d.ExamID)
	}
	seen := make(map[uint]struct{}, len(d.Questions))
	for _, q := range d.Questions {
		if _, dup := seen[q.QuestionID]; dup {
			return fmt.Errorf("exam %d: duplicate question %d", d.ExamID, q.QuestionID)
		}
		seen[q.QuestionID] = struct{}{}

		hasOptions := len(q.Payload.Options) > 0
		if q.Payload.Type.IsChoice() && !hasOptions {
			return fmt.Errorf("exam %d: question %d of type %s has no options", d.ExamID, q.QuestionID, q.Payload.Type)
		}
		if !q.Payload.Type.IsChoice() && hasOptions {
			return fmt.Errorf("exam %d: question %d of type %s carries options", d.ExamID, q.QuestionID, q.Payload.Type)
		}
	}
	return nil
}

// QuestionByID returns the payload for a question in this definition.
func (d *ExamDefinition) QuestionByID(questionID uint) (QuestionPayload, bool) {
	for _, q := range d.Questions {
		if q.QuestionID == questionID {
			return q.Payload, true
		}
	}
	return QuestionPayload{}, false
}

// HasOption reports whether key is a valid option of the question.
func (p QuestionPayload) HasOption(key string) bool {
	for _, opt := range p.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// AnswerSubmission is the wire form consumed by the exam service on final
// submission.
type AnswerSubmission struct {
	QuestionID uint   `json:"questionId"`
	Response   string `json:"response"`
}
