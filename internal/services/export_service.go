package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

type exportService struct {
	exams  ExamService
	logger *slog.Logger
}

func NewExportService(exams ExamService, logger *slog.Logger) ExportService {
	return &exportService{
		exams:  exams,
		logger: logger,
	}
}

// ExportResults renders one exam's results as an xlsx workbook with a
// single "Results" sheet, one row per student.
func (s *exportService) ExportResults(ctx context.Context, examID uint) (*excelize.File, error) {
	results, err := s.exams.GetExamResults(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results for export: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Results"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create results sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"Student ID", "Student Name", "Score", "Max Score", "Percentage", "Grading"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, result := range results.Results {
		percentage := 0.0
		if result.MaxScore > 0 {
			percentage = result.TotalScore / float64(result.MaxScore) * 100
		}
		grading := "final"
		if !result.IsFinal {
			grading = "pending manual"
		}

		values := []interface{}{
			result.StudentID,
			result.StudentName,
			result.TotalScore,
			result.MaxScore,
			fmt.Sprintf("%.1f%%", percentage),
			grading,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("Results exported",
		"exam_id", examID,
		"exam_name", results.ExamName,
		"rows", len(results.Results))

	return f, nil
}
