package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// ExamRepository reads exam content. The session service never writes
// exams; authoring lives in a different system.
type ExamRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)

	// GetByIDWithQuestions loads the exam with its question bindings and
	// question bodies, ordered by position.
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)

	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]models.Exam, error)
}

// AnswerRepository persists final submitted answers.
type AnswerRepository interface {
	// ReplaceForStudent atomically replaces the student's answer rows for
	// an exam. A duplicate final submission therefore converges on the
	// same rows instead of accumulating.
	ReplaceForStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string, answers []*models.SubmittedAnswer) error

	ListByExamStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) ([]models.SubmittedAnswer, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]models.SubmittedAnswer, error)
}

// ScoreRepository persists per-student exam totals.
type ScoreRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, record *models.ScoreRecord) error
	GetByExamStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ScoreRecord, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]models.ScoreRecord, error)
}

// UserRepository resolves user identities (read-only).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Status    *models.ExamStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "name", "start_time"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}
