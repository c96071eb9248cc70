package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

// ===== EXAM CONTENT =====

// GetExamDetails loads the exam and strips everything a student must
// not see. Correct answers stay server-side.
func (s *examService) GetExamDetails(ctx context.Context, examID uint) (*models.ExamDefinition, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("exam %d: %w", examID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load exam %d: %w", examID, err)
	}

	def, err := sanitizeExam(exam)
	if err != nil {
		return nil, fmt.Errorf("exam %d has invalid content: %w", examID, err)
	}
	return def, nil
}

// sanitizeExam converts the stored exam into the session read model,
// dropping correct answers and authorship metadata.
func sanitizeExam(exam *models.Exam) (*models.ExamDefinition, error) {
	bindings := make([]models.ExamQuestion, len(exam.Questions))
	copy(bindings, exam.Questions)
	sort.SliceStable(bindings, func(i, j int) bool {
		return bindings[i].Position < bindings[j].Position
	})

	def := &models.ExamDefinition{
		ExamID:          exam.ID,
		Name:            exam.Name,
		DurationMinutes: exam.DurationMinutes,
		Questions:       make([]models.QuestionRef, 0, len(bindings)),
	}

	for _, binding := range bindings {
		q := binding.Question

		var options []models.Option
		if len(q.Options) > 0 {
			if err := json.Unmarshal(q.Options, &options); err != nil {
				return nil, fmt.Errorf("question %d: malformed options: %w", q.ID, err)
			}
		}

		def.Questions = append(def.Questions, models.QuestionRef{
			QuestionID:  q.ID,
			ScoreWeight: binding.Score,
			Payload: models.QuestionPayload{
				QuestionID: q.ID,
				Type:       q.Type,
				Content:    q.Content,
				Options:    options,
			},
		})
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// ListExams returns catalog rows matching the filters. Defaults: Active
// exams, newest first, 20 per page.
func (s *examService) ListExams(ctx context.Context, req *ListExamsRequest) ([]ExamSummary, error) {
	if req == nil {
		req = &ListExamsRequest{}
	}
	if errs := s.validator.Validate(req); errs != nil {
		return nil, errs
	}

	status := req.Status
	if status == nil {
		active := models.ExamActive
		status = &active
	}
	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	exams, err := s.repo.Exam().List(ctx, nil, repositories.ExamFilters{
		Status:    status,
		Limit:     limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	summaries := make([]ExamSummary, 0, len(exams))
	for _, exam := range exams {
		summaries = append(summaries, ExamSummary{
			ExamID:          exam.ID,
			Name:            exam.Name,
			DurationMinutes: exam.DurationMinutes,
			Status:          exam.Status,
			StartTime:       exam.StartTime,
			EndTime:         exam.EndTime,
			QuestionCount:   len(exam.Questions),
		})
	}
	return summaries, nil
}

// ===== FINAL SUBMISSION =====

// SubmitExamAnswers grades and persists the final answer list in one
// transaction. Re-running the same submission replaces the previous
// rows, so a duplicate delivery converges on the same result.
func (s *examService) SubmitExamAnswers(ctx context.Context, examID uint, studentID string, answers []models.AnswerSubmission) error {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return fmt.Errorf("exam %d: %w", examID, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to load exam %d: %w", examID, err)
	}

	rows, record, err := s.gradeSubmission(exam, studentID, answers)
	if err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Answer().ReplaceForStudent(ctx, tx, examID, studentID, rows); err != nil {
			return err
		}
		return s.repo.Score().Upsert(ctx, tx, record)
	})
	if err != nil {
		return fmt.Errorf("failed to persist submission: %w", err)
	}

	s.logger.Info("Final submission persisted",
		"exam_id", examID,
		"student_id", studentID,
		"answers_count", len(rows),
		"total_score", record.TotalScore,
		"is_final", record.IsFinal)

	return nil
}

// gradeSubmission turns the wire answers into graded rows plus the
// aggregated score record.
func (s *examService) gradeSubmission(exam *models.Exam, studentID string, answers []models.AnswerSubmission) ([]*models.SubmittedAnswer, *models.ScoreRecord, error) {
	type questionBinding struct {
		question *models.Question
		weight   int
	}
	byID := make(map[uint]questionBinding, len(exam.Questions))
	maxScore := 0
	hasManual := false
	for i := range exam.Questions {
		binding := &exam.Questions[i]
		byID[binding.QuestionID] = questionBinding{
			question: &binding.Question,
			weight:   binding.Score,
		}
		maxScore += binding.Score
		if binding.Question.Type == models.QuestionShort {
			hasManual = true
		}
	}

	rows := make([]*models.SubmittedAnswer, 0, len(answers))
	total := 0.0
	for _, answer := range answers {
		binding, ok := byID[answer.QuestionID]
		if !ok {
			return nil, nil, fmt.Errorf("question %d does not belong to exam %d", answer.QuestionID, exam.ID)
		}

		score, isCorrect, graded := gradeResponse(binding.question, answer.Response, binding.weight)
		total += score

		rows = append(rows, &models.SubmittedAnswer{
			ExamID:     exam.ID,
			StudentID:  studentID,
			QuestionID: answer.QuestionID,
			Response:   answer.Response,
			Score:      score,
			MaxScore:   binding.weight,
			IsCorrect:  isCorrect,
			IsGraded:   graded,
		})
	}

	record := &models.ScoreRecord{
		ExamID:     exam.ID,
		StudentID:  studentID,
		TotalScore: total,
		MaxScore:   maxScore,
		IsFinal:    !hasManual,
	}
	return rows, record, nil
}

// ===== RESULTS =====

func (s *examService) GetStudentResult(ctx context.Context, examID uint, studentID string) (*StudentResult, error) {
	record, err := s.repo.Score().GetByExamStudent(ctx, nil, examID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("no submission for student %s on exam %d: %w", studentID, examID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load score record: %w", err)
	}

	answers, err := s.repo.Answer().ListByExamStudent(ctx, nil, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitted answers: %w", err)
	}

	result := &StudentResult{
		ExamID:      examID,
		StudentID:   studentID,
		TotalScore:  record.TotalScore,
		MaxScore:    record.MaxScore,
		IsFinal:     record.IsFinal,
		SubmittedAt: record.UpdatedAt,
		Answers:     answers,
	}

	if user, err := s.repo.User().GetByID(ctx, studentID); err == nil {
		result.StudentName = user.FullName
	}
	return result, nil
}

func (s *examService) GetExamResults(ctx context.Context, examID uint) (*ExamResults, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("exam %d: %w", examID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load exam %d: %w", examID, err)
	}

	records, err := s.repo.Score().ListByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list score records: %w", err)
	}

	results := &ExamResults{
		ExamID:   examID,
		ExamName: exam.Name,
		Results:  make([]StudentResult, 0, len(records)),
	}

	// Resolve display names in one pass; a failed lookup leaves the name
	// blank rather than failing the listing.
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.StudentID)
	}
	names := make(map[string]string, len(ids))
	if users, err := s.repo.User().GetByIDs(ctx, ids); err == nil {
		for _, user := range users {
			names[user.ID] = user.FullName
		}
	} else {
		s.logger.Warn("Failed to resolve student names for results", "exam_id", examID, "error", err)
	}

	for _, record := range records {
		results.Results = append(results.Results, StudentResult{
			ExamID:      examID,
			StudentID:   record.StudentID,
			StudentName: names[record.StudentID],
			TotalScore:  record.TotalScore,
			MaxScore:    record.MaxScore,
			IsFinal:     record.IsFinal,
			SubmittedAt: record.UpdatedAt,
		})
	}
	return results, nil
}
