package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type ScorePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewScorePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ScoreRepository {
	return &ScorePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Upsert writes the score row keyed by (exam, student), overwriting any
// prior total. Resubmissions converge instead of duplicating.
func (s *ScorePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, record *models.ScoreRecord) error {
	db := s.getDB(tx)

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_score", "max_score", "is_final", "updated_at"}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert score record: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, s.cacheManager.Results, fmt.Sprintf("%d:*", record.ExamID))
	return nil
}

func (s *ScorePostgreSQL) GetByExamStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ScoreRecord, error) {
	cacheKey := fmt.Sprintf("%d:%s", examID, studentID)
	if tx == nil {
		var cached models.ScoreRecord
		if err := s.cacheManager.Results.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	db := s.getDB(tx)

	var record models.ScoreRecord
	err := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get score record: %w", err)
	}

	if tx == nil {
		_ = s.cacheManager.Results.Set(ctx, cacheKey, &record, cache.ResultsCacheConfig.TTL)
	}
	return &record, nil
}

func (s *ScorePostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]models.ScoreRecord, error) {
	cacheKey := fmt.Sprintf("%d:list", examID)
	if tx == nil {
		var cached []models.ScoreRecord
		if err := s.cacheManager.Results.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	db := s.getDB(tx)

	var records []models.ScoreRecord
	err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list score records: %w", err)
	}

	if tx == nil {
		_ = s.cacheManager.Results.Set(ctx, cacheKey, records, cache.ResultsCacheConfig.TTL)
	}
	return records, nil
}

func (s *ScorePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
