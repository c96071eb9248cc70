package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) ReplaceForStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string, answers []*models.SubmittedAnswer) error {
	db := a.getDB(tx)

	err := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Delete(&models.SubmittedAnswer{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear prior answers: %w", err)
	}

	if len(answers) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Create(&answers).Error; err != nil {
		return fmt.Errorf("failed to insert answers: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) ListByExamStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) ([]models.SubmittedAnswer, error) {
	db := a.getDB(tx)

	var answers []models.SubmittedAnswer
	err := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Order("question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]models.SubmittedAnswer, error) {
	db := a.getDB(tx)

	var answers []models.SubmittedAnswer
	err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id ASC, question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list exam answers: %w", err)
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
