package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// Dependencies are the injected collaborators shared by all sessions.
// Device may be nil, which disables environment monitoring entirely.
type Dependencies struct {
	ExamService ExamService
	Drafts      *DraftStore
	Probe       ConnectivityProbe
	Device      MediaDevice
	Classifier  AnomalyClassifier
	Events      events.EventPublisher
	Logger      *slog.Logger

	// MonitorInterval defaults to DefaultSampleInterval when zero.
	MonitorInterval time.Duration
}

// Session drives one student's run through one exam:
//
//	Loading -> Active -> Submitting -> Completed
//	                 ^       |
//	                 +-------+  (submission failure)
//
// All state transitions go through the session mutex; the timer and
// monitor goroutines deliver their results exclusively through session
// methods.
type Session struct {
	id        string
	examID    uint
	studentID string

	deps  Dependencies
	coord *SubmissionCoordinator

	mu           sync.Mutex
	status       models.SessionStatus
	def          *models.ExamDefinition
	sheet        *AnswerSheet
	deadline     time.Time
	remaining    int
	currentIndex int
	endReason    string
	resumed      bool

	timer   *CountdownTimer
	monitor *EnvironmentMonitor

	// onComplete lets the owning manager drop its registration once the
	// session reaches the terminal state.
	onComplete func(*Session)
}

func newSession(examID uint, studentID string, deps Dependencies, onComplete func(*Session)) *Session {
	return &Session{
		id:         uuid.New().String(),
		examID:     examID,
		studentID:  studentID,
		deps:       deps,
		coord:      NewSubmissionCoordinator(deps.ExamService, deps.Probe, deps.Drafts, deps.Logger),
		status:     models.SessionLoading,
		timer:      NewCountdownTimer(),
		onComplete: onComplete,
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) ExamID() uint      { return s.examID }
func (s *Session) StudentID() string { return s.studentID }

// Begin runs the Loading phase: fetch the exam definition, restore the
// draft, compute the deadline, then start the timer and the monitor
// and move to Active.
func (s *Session) Begin(ctx context.Context) error {
	def, err := s.deps.ExamService.GetExamDetails(ctx, s.examID)
	if err != nil {
		return fmt.Errorf("failed to load exam %d: %w", s.examID, err)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid exam definition: %w", err)
	}

	restored, err := s.deps.Drafts.Load(ctx, s.studentID, s.examID)
	if err != nil {
		return fmt.Errorf("failed to restore draft: %w", err)
	}

	deadline, found, err := s.deps.Drafts.LoadDeadline(ctx, s.studentID, s.examID)
	if err != nil {
		return fmt.Errorf("failed to restore deadline: %w", err)
	}
	now := time.Now()
	resumed := found
	if !found {
		deadline = now.Add(time.Duration(def.DurationMinutes) * time.Minute)
		if err := s.deps.Drafts.SaveDeadline(ctx, s.studentID, s.examID, deadline); err != nil {
			return fmt.Errorf("failed to persist deadline: %w", err)
		}
	}

	remaining := int(time.Until(deadline).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	var monitor *EnvironmentMonitor
	if s.deps.Device != nil {
		monitor = NewEnvironmentMonitor(s.deps.Device, s.deps.Classifier, s.deps.MonitorInterval, s.deps.Logger)
	}

	s.mu.Lock()
	s.def = def
	s.sheet = NewAnswerSheet(def, restored)
	s.deadline = deadline
	s.remaining = remaining
	s.resumed = resumed
	s.monitor = monitor
	s.status = models.SessionActive
	s.mu.Unlock()

	if monitor != nil {
		if err := monitor.Start(ctx, s.id, s.recordVerdict); err != nil {
			return fmt.Errorf("failed to start environment monitor: %w", err)
		}
	}

	// An already-expired deadline (resumed after the exam ran out)
	// fires the same auto-submit path the live countdown would.
	s.timer.Start(remaining, s.handleTick, s.handleExpiry)

	s.publish(events.NewEvent(events.TypeSessionStarted, events.SessionStartedEvent{
		SessionID: s.id,
		ExamID:    s.examID,
		StudentID: s.studentID,
		Resumed:   resumed,
		Deadline:  deadline.UTC().Format(time.RFC3339),
	}))

	s.deps.Logger.Info("Exam session started",
		"session_id", s.id,
		"exam_id", s.examID,
		"student_id", s.studentID,
		"resumed", resumed,
		"time_remaining", remaining,
		"restored_answers", len(restored))

	return nil
}

// SetAnswer applies one answer mutation and writes the whole current
// map through to the draft store. The write-through stays under the
// session mutex so draft writes land in the same order as the edits;
// releasing it between snapshot and Save would let an older full-map
// snapshot overwrite a newer one.
func (s *Session) SetAnswer(ctx context.Context, req *SetAnswerRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionActive {
		return ErrSessionNotActive
	}
	if err := s.sheet.Apply(req); err != nil {
		return err
	}
	if err := s.deps.Drafts.Save(ctx, s.studentID, s.examID, s.sheet.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	return nil
}

// Navigate changes the current question index. Pure cursor move, no
// other side effects.
func (s *Session) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionActive {
		return ErrSessionNotActive
	}
	if index < 0 || index >= len(s.def.Questions) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.def.Questions))
	}
	s.currentIndex = index
	return nil
}

// Submit is the manual submission trigger.
func (s *Session) Submit(ctx context.Context) error {
	return s.submit(ctx, models.SessionEndReasonManual)
}

func (s *Session) submit(ctx context.Context, reason string) error {
	s.mu.Lock()
	switch s.status {
	case models.SessionCompleted:
		s.mu.Unlock()
		return ErrSessionCompleted
	case models.SessionSubmitting:
		s.mu.Unlock()
		return ErrSubmissionInFlight
	case models.SessionLoading:
		s.mu.Unlock()
		return ErrSessionNotActive
	}
	s.status = models.SessionSubmitting
	s.endReason = reason
	wire := s.sheet.ToWire()
	s.mu.Unlock()

	err := s.coord.Submit(ctx, s.examID, s.studentID, wire)
	if err != nil {
		// Draft intact, answers live; back to Active for a retry.
		s.mu.Lock()
		s.status = models.SessionActive
		s.mu.Unlock()

		s.publish(events.NewEvent(events.TypeSubmitFailed, events.SubmitFailedEvent{
			SessionID: s.id,
			ExamID:    s.examID,
			StudentID: s.studentID,
			Reason:    err.Error(),
		}))
		return err
	}

	s.mu.Lock()
	s.status = models.SessionCompleted
	remaining := s.remaining
	monitor := s.monitor
	s.mu.Unlock()

	s.teardown()

	warnings := 0
	if monitor != nil {
		warnings = monitor.State().WarningCount
	}
	s.publish(events.NewEvent(events.TypeSessionSubmitted, events.SessionSubmittedEvent{
		SessionID:     s.id,
		ExamID:        s.examID,
		StudentID:     s.studentID,
		AnswerCount:   len(wire),
		EndReason:     reason,
		WarningCount:  warnings,
		TimeRemaining: remaining,
	}))

	s.deps.Logger.Info("Exam session completed",
		"session_id", s.id,
		"exam_id", s.examID,
		"student_id", s.studentID,
		"end_reason", reason)

	if s.onComplete != nil {
		s.onComplete(s)
	}
	return nil
}

// handleTick runs on the timer goroutine, once per second.
func (s *Session) handleTick(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.SessionCompleted {
		return
	}
	s.remaining = remaining
}

// handleExpiry runs on the timer goroutine when the countdown reaches
// zero, exactly once. Submission semantics are identical to a manual
// submit; when offline the session stays Active at time-zero with the
// draft preserved until the student retries.
func (s *Session) handleExpiry() {
	s.deps.Logger.Info("Exam time expired, auto-submitting",
		"session_id", s.id,
		"exam_id", s.examID,
		"student_id", s.studentID)

	if err := s.submit(context.Background(), models.SessionEndReasonTimeout); err != nil {
		s.deps.Logger.Warn("Auto-submit at expiry failed, draft preserved",
			"session_id", s.id,
			"error", err)
	}
}

// recordVerdict runs on the monitor goroutine after each sample.
func (s *Session) recordVerdict(verdict models.Verdict, warnings int) {
	if verdict != models.VerdictWarn {
		return
	}

	s.deps.Logger.Warn("Proctoring anomaly detected",
		"session_id", s.id,
		"exam_id", s.examID,
		"student_id", s.studentID,
		"warning_count", warnings)

	s.publish(events.NewEvent(events.TypeProctorWarning, events.ProctorWarningEvent{
		SessionID:    s.id,
		ExamID:       s.examID,
		StudentID:    s.studentID,
		WarningCount: warnings,
	}))
}

// teardown stops the timer and monitor. The Stop calls run without
// the session mutex held: both join goroutines that may be blocked on
// session callbacks.
func (s *Session) teardown() {
	s.mu.Lock()
	monitor := s.monitor
	s.mu.Unlock()

	s.timer.Stop()
	if monitor != nil {
		monitor.Stop()
	}
}

// Shutdown cancels the session's background activity without touching
// the draft. Used on service stop or when the student navigates away;
// the persisted draft and deadline make the session resumable.
func (s *Session) Shutdown() {
	s.teardown()
}

// Snapshot returns the externally visible view of the session. A
// session still in the Loading phase has no definition or sheet yet
// and yields a minimal status-only view.
func (s *Session) Snapshot(includeQuestions bool) *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &SessionView{
		SessionID:     s.id,
		ExamID:        s.examID,
		StudentID:     s.studentID,
		Status:        s.status,
		Resumed:       s.resumed,
		TimeRemaining: s.remaining,
		CurrentIndex:  s.currentIndex,
	}
	if s.def == nil {
		return view
	}
	view.TotalQuestions = len(s.def.Questions)
	view.ExamName = s.def.Name
	view.Answers = s.sheet.Snapshot()
	view.AnsweredCount = len(view.Answers)
	if s.monitor != nil {
		view.Monitor = s.monitor.State()
	}
	if includeQuestions {
		view.Questions = s.def.Questions
	}
	return view
}

// Status returns the current state machine state.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

func (s *Session) publish(event *events.Event) {
	if s.deps.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Events.Publish(ctx, event); err != nil {
		s.deps.Logger.Error("Failed to publish event",
			"event_type", event.Type,
			"session_id", s.id,
			"error", err)
	}
}
