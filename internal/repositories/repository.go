package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the per-domain repositories behind one handle
type Repository interface {
	// Exam domain (read-only for the session service)
	Exam() ExamRepository

	// Submission domain
	Answer() AnswerRepository
	Score() ScoreRepository

	// User domain (backed by Casdoor)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// ErrNotFound is returned by lookups that match no record, regardless
// of the backing store.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means "no such record".
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
