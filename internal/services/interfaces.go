package services

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// ExamService is the upstream exam backend as seen by running sessions:
// sanitized exam content out, final answer lists in. SubmitExamAnswers
// grades what it can and persists answers and totals in one
// transaction.
type ExamService interface {
	GetExamDetails(ctx context.Context, examID uint) (*models.ExamDefinition, error)
	SubmitExamAnswers(ctx context.Context, examID uint, studentID string, answers []models.AnswerSubmission) error

	// ListExams returns the exam catalog for session start screens.
	ListExams(ctx context.Context, req *ListExamsRequest) ([]ExamSummary, error)

	// Results for teachers and proctors
	GetStudentResult(ctx context.Context, examID uint, studentID string) (*StudentResult, error)
	GetExamResults(ctx context.Context, examID uint) (*ExamResults, error)
}

// ExportService renders exam results as a downloadable workbook.
type ExportService interface {
	ExportResults(ctx context.Context, examID uint) (*excelize.File, error)
}

// ===== REQUEST/RESPONSE DTOs =====

type ListExamsRequest struct {
	Status    *models.ExamStatus `json:"status" validate:"omitempty,oneof=Pending Active Finished Canceled"`
	Limit     int                `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int                `json:"offset" validate:"omitempty,min=0"`
	SortBy    string             `json:"sort_by" validate:"omitempty,oneof=created_at name start_time"`
	SortOrder string             `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// ExamSummary is the catalog row shown before a session starts. It
// carries no question content.
type ExamSummary struct {
	ExamID          uint              `json:"exam_id"`
	Name            string            `json:"name"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          models.ExamStatus `json:"status"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	QuestionCount   int               `json:"question_count"`
}

type StudentResult struct {
	ExamID      uint                     `json:"exam_id"`
	StudentID   string                   `json:"student_id"`
	StudentName string                   `json:"student_name,omitempty"`
	TotalScore  float64                  `json:"total_score"`
	MaxScore    int                      `json:"max_score"`
	IsFinal     bool                     `json:"is_final"`
	SubmittedAt time.Time                `json:"submitted_at"`
	Answers     []models.SubmittedAnswer `json:"answers"`
}

type ExamResults struct {
	ExamID   uint            `json:"exam_id"`
	ExamName string          `json:"exam_name"`
	Results  []StudentResult `json:"results"`
}
