// Package scoring holds the quiz scoring and ranking rules. Everything here is
// pure: callers load the inputs and persist the results.
package scoring

import (
	"quiz-leaderboard-service/internal/domain"
)

// DefaultQuestionValue is what a fully correct question is worth.
const DefaultQuestionValue = 10.0

// Evaluator decides correctness and awarded points for single answers.
type Evaluator struct {
	questionValue float64
}

// NewEvaluator returns an evaluator worth questionValue per question, or
// DefaultQuestionValue when questionValue is not positive.
func NewEvaluator(questionValue float64) Evaluator {
	if questionValue <= 0 {
		questionValue = DefaultQuestionValue
	}
	return Evaluator{questionValue: questionValue}
}

// QuestionValue reports the configured per-question value.
func (e Evaluator) QuestionValue() float64 {
	return e.questionValue
}

// Evaluate scores one selected choice. A correct choice earns an equal share of
// the question value split across all correct choices of the question.
func (e Evaluator) Evaluate(selected domain.Choice, question domain.Question) (bool, float64, error) {
	if _, ok := question.Choice(selected.ID); !ok {
		return false, 0, domain.Invalid(domain.ErrChoiceNotInQuestion, "choice %d, question %d", selected.ID, question.ID)
	}
	if !selected.IsCorrect {
		return false, 0, nil
	}
	correct := question.CorrectCount()
	if correct == 0 {
		return true, 0, nil
	}
	return true, e.questionValue / float64(correct), nil
}

// EvaluateAll validates a full submission against the quiz and evaluates every
// answer. Nothing is returned unless the whole submission is valid.
func (e Evaluator) EvaluateAll(quiz domain.Quiz, submissions []domain.AnswerSubmission) ([]domain.AttemptedAnswer, error) {
	if len(submissions) == 0 {
		return nil, domain.ErrNoAnswers
	}

	seen := make(map[domain.AnswerSubmission]struct{}, len(submissions))
	answers := make([]domain.AttemptedAnswer, 0, len(submissions))
	for _, sub := range submissions {
		if _, dup := seen[sub]; dup {
			return nil, domain.Invalid(domain.ErrDuplicateAnswer, "question %d, choice %d", sub.QuestionID, sub.ChoiceID)
		}
		seen[sub] = struct{}{}

		question, ok := quiz.Question(sub.QuestionID)
		if !ok {
			return nil, domain.Invalid(domain.ErrQuestionNotInQuiz, "question %d, quiz %d", sub.QuestionID, quiz.ID)
		}
		choice, ok := question.Choice(sub.ChoiceID)
		if !ok {
			return nil, domain.Invalid(domain.ErrChoiceNotInQuestion, "choice %d, question %d", sub.ChoiceID, sub.QuestionID)
		}

		correct, points, err := e.Evaluate(choice, question)
		if err != nil {
			return nil, err
		}
		answers = append(answers, domain.AttemptedAnswer{
			QuestionID:    question.ID,
			ChoiceID:      choice.ID,
			IsCorrect:     correct,
			PointsAwarded: points,
		})
	}
	return answers, nil
}
