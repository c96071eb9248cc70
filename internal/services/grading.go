package services

import (
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/session"
)

// gradeResponse auto-grades one response against the question's stored
// answer. Choice questions are all-or-nothing: a multiple-choice
// response scores only when the selected set equals the correct set
// exactly. Short answers are left for manual grading.
//
// Returns the awarded score, the correctness flag (nil when not
// auto-gradable) and whether grading happened at all.
func gradeResponse(question *models.Question, response string, maxScore int) (float64, *bool, bool) {
	switch question.Type {
	case models.QuestionSingle, models.QuestionJudge:
		correct := response == question.Answer
		return choiceScore(correct, maxScore), &correct, true

	case models.QuestionMultiple:
		correct := session.CanonicalChoiceString(response) == session.CanonicalChoiceString(question.Answer)
		return choiceScore(correct, maxScore), &correct, true

	case models.QuestionShort:
		// Reference answers for short questions guide the human grader;
		// an exact match is too strict to award or deny automatically.
		return 0, nil, false
	}
	return 0, nil, false
}

func choiceScore(correct bool, maxScore int) float64 {
	if correct {
		return float64(maxScore)
	}
	return 0
}
