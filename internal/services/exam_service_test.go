package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func optionsJSON(t *testing.T, keys ...string) datatypes.JSON {
	t.Helper()

	options := make([]models.Option, len(keys))
	for i, key := range keys {
		options[i] = models.Option{Key: key, Label: "option " + key}
	}
	data, err := json.Marshal(options)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return data
}

// testExam has one question of each type, deliberately stored out of
// position order.
func testExam(t *testing.T) *models.Exam {
	t.Helper()

	return &models.Exam{
		ID:              7,
		Name:            "Midterm",
		DurationMinutes: 45,
		Status:          models.ExamActive,
		Questions: []models.ExamQuestion{
			{
				ExamID: 7, QuestionID: 4, Score: 10, Position: 4,
				Question: models.Question{ID: 4, Type: models.QuestionShort, Content: "Explain", Answer: "reference"},
			},
			{
				ExamID: 7, QuestionID: 1, Score: 2, Position: 1,
				Question: models.Question{ID: 1, Type: models.QuestionSingle, Content: "Pick one", Options: optionsJSON(t, "A", "B", "C"), Answer: "B"},
			},
			{
				ExamID: 7, QuestionID: 3, Score: 1, Position: 3,
				Question: models.Question{ID: 3, Type: models.QuestionJudge, Content: "True?", Options: optionsJSON(t, "T", "F"), Answer: "T"},
			},
			{
				ExamID: 7, QuestionID: 2, Score: 4, Position: 2,
				Question: models.Question{ID: 2, Type: models.QuestionMultiple, Content: "Pick several", Options: optionsJSON(t, "A", "B", "C", "D"), Answer: "A,C"},
			},
		},
	}
}

// ===== FAKE REPOSITORY =====

type fakeExamRepo struct {
	exam *models.Exam
}

func (f *fakeExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	if f.exam == nil || f.exam.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.exam, nil
}

func (f *fakeExamRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	return f.GetByID(ctx, tx, id)
}

func (f *fakeExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]models.Exam, error) {
	if f.exam == nil {
		return nil, nil
	}
	return []models.Exam{*f.exam}, nil
}

type fakeAnswerRepo struct {
	rows []*models.SubmittedAnswer
}

func (f *fakeAnswerRepo) ReplaceForStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string, answers []*models.SubmittedAnswer) error {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ExamID != examID || row.StudentID != studentID {
			kept = append(kept, row)
		}
	}
	f.rows = append(kept, answers...)
	return nil
}

func (f *fakeAnswerRepo) ListByExamStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) ([]models.SubmittedAnswer, error) {
	var out []models.SubmittedAnswer
	for _, row := range f.rows {
		if row.ExamID == examID && row.StudentID == studentID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeAnswerRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]models.SubmittedAnswer, error) {
	var out []models.SubmittedAnswer
	for _, row := range f.rows {
		if row.ExamID == examID {
			out = append(out, *row)
		}
	}
	return out, nil
}

type fakeScoreRepo struct {
	records map[string]*models.ScoreRecord
}

func scoreKey(examID uint, studentID string) string {
	return fmt.Sprintf("%s/%d", studentID, examID)
}

func (f *fakeScoreRepo) Upsert(ctx context.Context, tx *gorm.DB, record *models.ScoreRecord) error {
	if f.records == nil {
		f.records = make(map[string]*models.ScoreRecord)
	}
	f.records[scoreKey(record.ExamID, record.StudentID)] = record
	return nil
}

func (f *fakeScoreRepo) GetByExamStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ScoreRecord, error) {
	record, ok := f.records[scoreKey(examID, studentID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return record, nil
}

func (f *fakeScoreRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]models.ScoreRecord, error) {
	var out []models.ScoreRecord
	for _, record := range f.records {
		if record.ExamID == examID {
			out = append(out, *record)
		}
	}
	return out, nil
}

type fakeUserRepo struct{}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, FullName: "Student " + id, Role: models.RoleStudent}, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, _ := f.GetByID(ctx, id)
		users = append(users, user)
	}
	return users, nil
}

func (f *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	return true, nil
}

type fakeRepository struct {
	exam   *fakeExamRepo
	answer *fakeAnswerRepo
	score  *fakeScoreRepo
	user   *fakeUserRepo
}

func newFakeRepository(exam *models.Exam) *fakeRepository {
	return &fakeRepository{
		exam:   &fakeExamRepo{exam: exam},
		answer: &fakeAnswerRepo{},
		score:  &fakeScoreRepo{},
		user:   &fakeUserRepo{},
	}
}

func (f *fakeRepository) Exam() repositories.ExamRepository     { return f.exam }
func (f *fakeRepository) Answer() repositories.AnswerRepository { return f.answer }
func (f *fakeRepository) Score() repositories.ScoreRepository   { return f.score }
func (f *fakeRepository) User() repositories.UserRepository     { return f.user }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

func newTestExamService(t *testing.T) (*examService, *fakeRepository) {
	t.Helper()

	repo := newFakeRepository(testExam(t))
	svc := NewExamService(repo, testLogger(), validator.New()).(*examService)
	return svc, repo
}

// ===== TESTS =====

func TestGetExamDetails_SanitizesAndOrders(t *testing.T) {
	svc, _ := newTestExamService(t)

	def, err := svc.GetExamDetails(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetExamDetails failed: %v", err)
	}

	if def.Name != "Midterm" || def.DurationMinutes != 45 {
		t.Errorf("definition header = %q/%d", def.Name, def.DurationMinutes)
	}

	// Questions come back in position order regardless of storage order.
	wantIDs := []uint{1, 2, 3, 4}
	if len(def.Questions) != len(wantIDs) {
		t.Fatalf("question count = %d, want %d", len(def.Questions), len(wantIDs))
	}
	for i, want := range wantIDs {
		if def.Questions[i].QuestionID != want {
			t.Errorf("Questions[%d].QuestionID = %d, want %d", i, def.Questions[i].QuestionID, want)
		}
	}

	// Weight carried, options decoded, no answer anywhere in the model.
	if def.Questions[1].ScoreWeight != 4 {
		t.Errorf("ScoreWeight = %d, want 4", def.Questions[1].ScoreWeight)
	}
	if len(def.Questions[0].Payload.Options) != 3 {
		t.Errorf("options = %d, want 3", len(def.Questions[0].Payload.Options))
	}
	if len(def.Questions[3].Payload.Options) != 0 {
		t.Errorf("short question carries options: %v", def.Questions[3].Payload.Options)
	}
}

func TestGetExamDetails_UnknownExam(t *testing.T) {
	svc, _ := newTestExamService(t)

	_, err := svc.GetExamDetails(context.Background(), 999)
	if !repositories.IsNotFoundError(err) {
		t.Fatalf("GetExamDetails = %v, want not-found", err)
	}
}

func TestSubmitExamAnswers_GradesAndPersists(t *testing.T) {
	svc, repo := newTestExamService(t)
	ctx := context.Background()

	answers := []models.AnswerSubmission{
		{QuestionID: 1, Response: "B"},   // correct single, 2 pts
		{QuestionID: 2, Response: "A,C"}, // correct multiple, 4 pts
		{QuestionID: 3, Response: "F"},   // wrong judge, 0 pts
		{QuestionID: 4, Response: "my essay"},
	}
	if err := svc.SubmitExamAnswers(ctx, 7, "u1", answers); err != nil {
		t.Fatalf("SubmitExamAnswers failed: %v", err)
	}

	record, err := repo.score.GetByExamStudent(ctx, nil, 7, "u1")
	if err != nil {
		t.Fatalf("score record missing: %v", err)
	}
	if record.TotalScore != 6 {
		t.Errorf("TotalScore = %v, want 6", record.TotalScore)
	}
	if record.MaxScore != 17 {
		t.Errorf("MaxScore = %v, want 17", record.MaxScore)
	}
	if record.IsFinal {
		t.Error("IsFinal = true with a short answer awaiting manual grading")
	}

	rows, _ := repo.answer.ListByExamStudent(ctx, nil, 7, "u1")
	if len(rows) != 4 {
		t.Fatalf("answer rows = %d, want 4", len(rows))
	}
	for _, row := range rows {
		if row.QuestionID == 4 {
			if row.IsGraded || row.IsCorrect != nil {
				t.Error("short answer marked graded")
			}
		}
		if row.QuestionID == 3 {
			if !row.IsGraded || row.IsCorrect == nil || *row.IsCorrect {
				t.Error("wrong judge answer not marked incorrect")
			}
		}
	}
}

func TestSubmitExamAnswers_DuplicateConverges(t *testing.T) {
	svc, repo := newTestExamService(t)
	ctx := context.Background()

	answers := []models.AnswerSubmission{{QuestionID: 1, Response: "B"}}
	if err := svc.SubmitExamAnswers(ctx, 7, "u1", answers); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if err := svc.SubmitExamAnswers(ctx, 7, "u1", answers); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	rows, _ := repo.answer.ListByExamStudent(ctx, nil, 7, "u1")
	if len(rows) != 1 {
		t.Errorf("answer rows = %d after duplicate submit, want 1", len(rows))
	}
}

func TestSubmitExamAnswers_RejectsForeignQuestion(t *testing.T) {
	svc, _ := newTestExamService(t)

	err := svc.SubmitExamAnswers(context.Background(), 7, "u1", []models.AnswerSubmission{
		{QuestionID: 42, Response: "A"},
	})
	if err == nil {
		t.Fatal("submission with foreign question accepted")
	}
}

func TestSubmitExamAnswers_EmptySubmission(t *testing.T) {
	svc, repo := newTestExamService(t)
	ctx := context.Background()

	if err := svc.SubmitExamAnswers(ctx, 7, "u1", nil); err != nil {
		t.Fatalf("empty submission failed: %v", err)
	}

	record, err := repo.score.GetByExamStudent(ctx, nil, 7, "u1")
	if err != nil {
		t.Fatalf("score record missing: %v", err)
	}
	if record.TotalScore != 0 {
		t.Errorf("TotalScore = %v, want 0", record.TotalScore)
	}
}

func TestGetExamResults(t *testing.T) {
	svc, _ := newTestExamService(t)
	ctx := context.Background()

	if err := svc.SubmitExamAnswers(ctx, 7, "u1", []models.AnswerSubmission{{QuestionID: 1, Response: "B"}}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := svc.SubmitExamAnswers(ctx, 7, "u2", []models.AnswerSubmission{{QuestionID: 1, Response: "A"}}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	results, err := svc.GetExamResults(ctx, 7)
	if err != nil {
		t.Fatalf("GetExamResults failed: %v", err)
	}
	if results.ExamName != "Midterm" || len(results.Results) != 2 {
		t.Fatalf("results = %q/%d rows", results.ExamName, len(results.Results))
	}
	for _, result := range results.Results {
		if result.StudentName == "" {
			t.Errorf("student %s has no resolved name", result.StudentID)
		}
	}
}

func TestGetStudentResult_NotFound(t *testing.T) {
	svc, _ := newTestExamService(t)

	_, err := svc.GetStudentResult(context.Background(), 7, "ghost")
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("GetStudentResult = %v, want ErrNotFound", err)
	}
}

func TestListExams(t *testing.T) {
	svc, _ := newTestExamService(t)

	exams, err := svc.ListExams(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListExams failed: %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("exams = %d, want 1", len(exams))
	}
	if exams[0].ExamID != 7 || exams[0].Name != "Midterm" {
		t.Errorf("summary = %+v", exams[0])
	}
	if exams[0].DurationMinutes != 30 || exams[0].QuestionCount != 4 {
		t.Errorf("duration/count = %d/%d, want 30/4", exams[0].DurationMinutes, exams[0].QuestionCount)
	}
}

func TestListExams_RejectsBadFilters(t *testing.T) {
	svc, _ := newTestExamService(t)

	_, err := svc.ListExams(context.Background(), &ListExamsRequest{SortBy: "password"})
	if err == nil {
		t.Fatal("expected validation error for unknown sort column")
	}
}
