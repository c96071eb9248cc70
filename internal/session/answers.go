package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// AnswerSheet is the in-memory answer map for one session, scoped to
// the session's exam definition. It is not safe for concurrent use;
// the owning session serializes access.
//
// Unanswered semantics differ by type on purpose: choice questions are
// cleared by removing the key entirely, while a short answer may be
// present with an empty string after an explicit clear. Downstream
// consumers rely on this distinction.
type AnswerSheet struct {
	def     *models.ExamDefinition
	answers map[uint]string
}

// NewAnswerSheet seeds a sheet from a restored draft, dropping entries
// for questions that are not part of the definition.
func NewAnswerSheet(def *models.ExamDefinition, restored map[uint]string) *AnswerSheet {
	answers := make(map[uint]string, len(restored))
	for id, response := range restored {
		if _, ok := def.QuestionByID(id); ok {
			answers[id] = response
		}
	}
	return &AnswerSheet{
		def:     def,
		answers: answers,
	}
}

// Apply dispatches a SetAnswerRequest to the variant matching the
// question type.
func (s *AnswerSheet) Apply(req *SetAnswerRequest) error {
	variants := 0
	if req.Select != nil {
		variants++
	}
	if req.Toggle != nil {
		variants++
	}
	if req.Text != nil {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("%w: exactly one of select, toggle, text required", ErrAnswerTypeMismatch)
	}

	switch {
	case req.Select != nil:
		return s.Select(req.QuestionID, *req.Select)
	case req.Toggle != nil:
		return s.Toggle(req.QuestionID, *req.Toggle)
	default:
		return s.SetText(req.QuestionID, *req.Text)
	}
}

// Select records the single option key for a single or judge question.
func (s *AnswerSheet) Select(questionID uint, key string) error {
	payload, ok := s.def.QuestionByID(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if payload.Type != models.QuestionSingle && payload.Type != models.QuestionJudge {
		return fmt.Errorf("%w: select on %s question %d", ErrAnswerTypeMismatch, payload.Type, questionID)
	}
	if !payload.HasOption(key) {
		return fmt.Errorf("%w: %q on question %d", ErrInvalidOption, key, questionID)
	}

	s.answers[questionID] = key
	return nil
}

// Toggle flips membership of key in a multiple-choice answer and
// recomputes the canonical form. Toggling the last selected key off
// removes the entry entirely.
func (s *AnswerSheet) Toggle(questionID uint, key string) error {
	payload, ok := s.def.QuestionByID(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if payload.Type != models.QuestionMultiple {
		return fmt.Errorf("%w: toggle on %s question %d", ErrAnswerTypeMismatch, payload.Type, questionID)
	}
	if !payload.HasOption(key) {
		return fmt.Errorf("%w: %q on question %d", ErrInvalidOption, key, questionID)
	}

	selected := splitKeys(s.answers[questionID])
	if _, on := selected[key]; on {
		delete(selected, key)
	} else {
		selected[key] = struct{}{}
	}

	if len(selected) == 0 {
		delete(s.answers, questionID)
		return nil
	}
	s.answers[questionID] = CanonicalChoice(selected)
	return nil
}

// SetText records free text for a short question, verbatim. The empty
// string is a valid value and means the student explicitly cleared the
// answer.
func (s *AnswerSheet) SetText(questionID uint, text string) error {
	payload, ok := s.def.QuestionByID(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if payload.Type != models.QuestionShort {
		return fmt.Errorf("%w: text on %s question %d", ErrAnswerTypeMismatch, payload.Type, questionID)
	}

	s.answers[questionID] = text
	return nil
}

// Clear removes a choice answer entirely (absent-key semantics).
func (s *AnswerSheet) Clear(questionID uint) {
	delete(s.answers, questionID)
}

func (s *AnswerSheet) Get(questionID uint) (string, bool) {
	response, ok := s.answers[questionID]
	return response, ok
}

func (s *AnswerSheet) Count() int {
	return len(s.answers)
}

// Snapshot returns a copy of the current answer map.
func (s *AnswerSheet) Snapshot() map[uint]string {
	out := make(map[uint]string, len(s.answers))
	for id, response := range s.answers {
		out[id] = response
	}
	return out
}

// ToWire converts the sheet to the submission list, in definition
// order. Unanswered questions are omitted.
func (s *AnswerSheet) ToWire() []models.AnswerSubmission {
	wire := make([]models.AnswerSubmission, 0, len(s.answers))
	for _, q := range s.def.Questions {
		if response, ok := s.answers[q.QuestionID]; ok {
			wire = append(wire, models.AnswerSubmission{
				QuestionID: q.QuestionID,
				Response:   response,
			})
		}
	}
	return wire
}

func splitKeys(joined string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, key := range strings.Split(joined, ",") {
		if key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// CanonicalChoice renders a key set in canonical form: sorted,
// de-duplicated, comma-joined. Downstream equality comparison depends
// on this exact form.
func CanonicalChoice(keys map[string]struct{}) string {
	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// CanonicalChoiceString normalizes an already-joined key list.
func CanonicalChoiceString(joined string) string {
	return CanonicalChoice(splitKeys(joined))
}
