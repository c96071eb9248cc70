package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// SubmissionCoordinator performs the final submission handshake:
// connectivity pre-check, wire conversion, the external submit call,
// and only on success the draft clear. A failed submission leaves
// every piece of local state intact so a fresh Submit can retry.
type SubmissionCoordinator struct {
	examService ExamService
	probe       ConnectivityProbe
	drafts      *DraftStore
	logger      *slog.Logger

	inFlight atomic.Bool
}

func NewSubmissionCoordinator(examService ExamService, probe ConnectivityProbe, drafts *DraftStore, logger *slog.Logger) *SubmissionCoordinator {
	return &SubmissionCoordinator{
		examService: examService,
		probe:       probe,
		drafts:      drafts,
		logger:      logger,
	}
}

// Submit sends the answer list to the exam service. Exactly one
// attempt runs at a time: a call arriving while another is in flight
// returns ErrSubmissionInFlight without any network I/O.
func (c *SubmissionCoordinator) Submit(ctx context.Context, examID uint, studentID string, answers []models.AnswerSubmission) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrSubmissionInFlight
	}
	defer c.inFlight.Store(false)

	if !c.probe.IsOnline(ctx) {
		c.logger.Warn("Submission blocked: offline",
			"exam_id", examID,
			"student_id", studentID)
		return ErrOffline
	}

	if err := c.examService.SubmitExamAnswers(ctx, examID, studentID, answers); err != nil {
		c.logger.Error("Submission rejected",
			"exam_id", examID,
			"student_id", studentID,
			"error", err)
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	// The only draft-clearing trigger in the whole system. A clear
	// failure is local cleanup debt, not a submission failure: the
	// answers are already accepted upstream.
	if err := c.drafts.Clear(ctx, studentID, examID); err != nil {
		c.logger.Error("Failed to clear draft after submission",
			"exam_id", examID,
			"student_id", studentID,
			"error", err)
	}
	if err := c.drafts.ClearDeadline(ctx, studentID, examID); err != nil {
		c.logger.Error("Failed to clear deadline after submission",
			"exam_id", examID,
			"student_id", studentID,
			"error", err)
	}

	c.logger.Info("Submission accepted",
		"exam_id", examID,
		"student_id", studentID,
		"answers_count", len(answers))

	return nil
}
