package service

import (
	"fmt"
	"math"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// NewAnswerSet creates the initial answer set for a scale. Sliders start at their
// minimum so they always count as answered; choice and text questions start empty.
func NewAnswerSet(scale *domain.Scale) domain.AnswerSet {
	answers := make(domain.AnswerSet, len(scale.Questions))
	for _, q := range scale.Questions {
		if q.Type == domain.QuestionSlider {
			answers[q.ID] = domain.NumberAnswer(float64(q.Min))
		}
	}
	return answers
}

// RequiredQuestions returns the ids that must be answered before submission.
// Activity scales only require the first activity slot.
func RequiredQuestions(scale *domain.Scale) []string {
	if scale.Rule.Policy == domain.PolicyActivityMean {
		if len(scale.Rule.Activities) == 0 {
			return nil
		}
		first := scale.Rule.Activities[0]
		return []string{first.LabelQuestionID, first.ScoreQuestionID}
	}
	return scale.QuestionIDs()
}

// MissingAnswers returns the required question ids without a non-blank answer
func MissingAnswers(scale *domain.Scale, answers domain.AnswerSet) []string {
	var missing []string
	for _, id := range RequiredQuestions(scale) {
		if !answers.Defined(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// IsComplete reports whether the answer set may be submitted for interpretation
func IsComplete(scale *domain.Scale, answers domain.AnswerSet) bool {
	return len(MissingAnswers(scale, answers)) == 0
}

// ValidateAnswer checks that an answer is acceptable for the question's type and range
func ValidateAnswer(q *domain.Question, a domain.Answer) error {
	if !q.Type.IsScored() {
		if _, ok := a.Text(); !ok {
			return domain.NewValidationError(q.ID, "free-text question requires a string answer", a.String())
		}
		return nil
	}

	v, ok := a.Number()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewValidationError(q.ID, "scored question requires a numeric answer", a.String())
	}

	if q.Type.IsChoice() {
		if v != math.Trunc(v) || !q.HasOption(int(v)) {
			return domain.NewValidationError(q.ID, "answer is not one of the question's option scores", v)
		}
		return nil
	}

	lo, hi := q.ScoreBounds()
	if v < float64(lo) || v > float64(hi) {
		return domain.NewValidationError(q.ID, fmt.Sprintf("answer must be between %d and %d", lo, hi), v)
	}
	if q.Step > 0 && math.Mod(v-float64(lo), float64(q.Step)) != 0 {
		return domain.NewValidationError(q.ID, fmt.Sprintf("answer must be a multiple of %d from %d", q.Step, lo), v)
	}
	return nil
}

// ValidateAnswers checks every answer in the set against the scale's questions.
// Answers to unknown questions are rejected.
func ValidateAnswers(scale *domain.Scale, answers domain.AnswerSet) error {
	for id, a := range answers {
		if a.IsBlank() {
			continue
		}
		q, ok := scale.Question(id)
		if !ok {
			return domain.NewValidationError(id, "question does not belong to scale "+scale.ID, a.String())
		}
		if err := ValidateAnswer(q, a); err != nil {
			return err
		}
	}
	return nil
}
