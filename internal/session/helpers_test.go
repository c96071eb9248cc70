package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strptr(s string) *string { return &s }

// sampleExam covers all four question types: a single-choice, a
// multiple-choice, a judge and a short-text question.
func sampleExam() *models.ExamDefinition {
	return &models.ExamDefinition{
		ExamID:          7,
		Name:            "Midterm",
		DurationMinutes: 30,
		Questions: []models.QuestionRef{
			{
				QuestionID:  1,
				ScoreWeight: 2,
				Payload: models.QuestionPayload{
					QuestionID: 1,
					Type:       models.QuestionSingle,
					Content:    "Pick one",
					Options: []models.Option{
						{Key: "A", Label: "first"},
						{Key: "B", Label: "second"},
						{Key: "C", Label: "third"},
					},
				},
			},
			{
				QuestionID:  2,
				ScoreWeight: 3,
				Payload: models.QuestionPayload{
					QuestionID: 2,
					Type:       models.QuestionMultiple,
					Content:    "Pick several",
					Options: []models.Option{
						{Key: "A", Label: "first"},
						{Key: "B", Label: "second"},
						{Key: "C", Label: "third"},
						{Key: "D", Label: "fourth"},
					},
				},
			},
			{
				QuestionID:  3,
				ScoreWeight: 1,
				Payload: models.QuestionPayload{
					QuestionID: 3,
					Type:       models.QuestionJudge,
					Content:    "True or false",
					Options: []models.Option{
						{Key: "T", Label: "true"},
						{Key: "F", Label: "false"},
					},
				},
			},
			{
				QuestionID:  4,
				ScoreWeight: 4,
				Payload: models.QuestionPayload{
					QuestionID: 4,
					Type:       models.QuestionShort,
					Content:    "Explain briefly",
				},
			},
		},
	}
}

// fakeExamService serves a fixed definition and records submissions.
// submitErr, when set, fails every SubmitExamAnswers call.
type fakeExamService struct {
	def *models.ExamDefinition

	mu        sync.Mutex
	submitErr error
	submitted [][]models.AnswerSubmission
}

func (f *fakeExamService) GetExamDetails(ctx context.Context, examID uint) (*models.ExamDefinition, error) {
	if f.def == nil || f.def.ExamID != examID {
		return nil, ErrExamNotFound
	}
	return f.def, nil
}

func (f *fakeExamService) SubmitExamAnswers(ctx context.Context, examID uint, studentID string, answers []models.AnswerSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, answers)
	return nil
}

func (f *fakeExamService) setSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

func (f *fakeExamService) submissions() [][]models.AnswerSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]models.AnswerSubmission, len(f.submitted))
	copy(out, f.submitted)
	return out
}

type fakeFrameSource struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeFrameSource) Capture(ctx context.Context) ([]byte, error) {
	return []byte("frame"), nil
}

func (f *fakeFrameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFrameSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeDevice hands out a fakeFrameSource, or fails acquisition when
// denied is set.
type fakeDevice struct {
	denied bool
	source *fakeFrameSource
}

func (f *fakeDevice) AcquireCamera(ctx context.Context, constraints CameraConstraints) (FrameSource, error) {
	if f.denied {
		return nil, errors.New("camera permission denied")
	}
	if f.source == nil {
		f.source = &fakeFrameSource{}
	}
	return f.source, nil
}

// fakeClassifier returns verdicts from a script, repeating the last
// entry once exhausted. An empty script means always SAFE.
type fakeClassifier struct {
	mu      sync.Mutex
	script  []models.Verdict
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(ctx context.Context, frame []byte) (models.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.script) == 0 {
		return models.VerdictSafe, nil
	}
	v := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return v, nil
}

type testEnv struct {
	exam   *fakeExamService
	kv     *store.MemoryStore
	drafts *DraftStore
	pub    *events.MockEventPublisher
	deps   Dependencies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	kv := store.NewMemoryStore()
	drafts := NewDraftStore(kv, logger)
	exam := &fakeExamService{def: sampleExam()}
	pub := events.NewMockEventPublisher(logger)

	return &testEnv{
		exam:   exam,
		kv:     kv,
		drafts: drafts,
		pub:    pub,
		deps: Dependencies{
			ExamService: exam,
			Drafts:      drafts,
			Probe:       AlwaysOnline,
			Events:      pub,
			Logger:      logger,
		},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
