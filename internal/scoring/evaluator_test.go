package scoring

import (
	"errors"
	"testing"

	"quiz-leaderboard-service/internal/domain"
)

func TestEvaluateSingleCorrectChoice(t *testing.T) {
	e := NewEvaluator(10)
	q := question(1, true, false, false)

	correct, points, err := e.Evaluate(q.Choices[0], q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !correct || points != 10 {
		t.Fatalf("expected full value for the correct choice, got correct=%v points=%v", correct, points)
	}

	for _, c := range q.Choices[1:] {
		correct, points, err := e.Evaluate(c, q)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if correct || points != 0 {
			t.Fatalf("expected 0 for wrong choice %d, got correct=%v points=%v", c.ID, correct, points)
		}
	}
}

func TestEvaluateSplitsCreditAcrossCorrectChoices(t *testing.T) {
	e := NewEvaluator(10)
	cases := []struct {
		name  string
		flags []bool
		want  float64
	}{
		{"two correct", []bool{true, true, false}, 5},
		{"four correct", []bool{true, true, true, true}, 2.5},
		{"three correct", []bool{false, true, true, true}, 10.0 / 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := question(1, tc.flags...)
			for _, c := range q.Choices {
				if !c.IsCorrect {
					continue
				}
				_, points, err := e.Evaluate(c, q)
				if err != nil {
					t.Fatalf("evaluate: %v", err)
				}
				if points != tc.want {
					t.Fatalf("choice %d: expected %v points, got %v", c.ID, tc.want, points)
				}
			}
		})
	}
}

func TestEvaluateCorrectChoiceWithoutCorrectSet(t *testing.T) {
	e := NewEvaluator(10)
	q := question(1, false, false)
	// Inconsistent data: the selected copy claims correctness the question does not.
	selected := q.Choices[0]
	selected.IsCorrect = true

	correct, points, err := e.Evaluate(selected, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !correct || points != 0 {
		t.Fatalf("expected correct with 0 points, got correct=%v points=%v", correct, points)
	}
}

func TestEvaluateRejectsForeignChoice(t *testing.T) {
	e := NewEvaluator(10)
	q1 := question(1, true, false)
	q2 := question(2, true, false)

	_, _, err := e.Evaluate(q2.Choices[0], q1)
	if !errors.Is(err, domain.ErrChoiceNotInQuestion) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected choice mismatch validation error, got %v", err)
	}
}

func TestNewEvaluatorDefaultsValue(t *testing.T) {
	if v := NewEvaluator(0).QuestionValue(); v != DefaultQuestionValue {
		t.Fatalf("expected default value %v, got %v", DefaultQuestionValue, v)
	}
}

func TestEvaluateAll(t *testing.T) {
	e := NewEvaluator(10)
	quiz := domain.Quiz{ID: 7, Questions: []domain.Question{question(1, true, false), question(2, true, true, false)}}

	answers, err := e.EvaluateAll(quiz, []domain.AnswerSubmission{
		{QuestionID: 1, ChoiceID: 101},
		{QuestionID: 2, ChoiceID: 201},
		{QuestionID: 2, ChoiceID: 200},
	})
	if err != nil {
		t.Fatalf("evaluate all: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}
	if answers[0].PointsAwarded != 0 || answers[0].IsCorrect {
		t.Fatalf("expected wrong first answer, got %+v", answers[0])
	}
	if answers[1].PointsAwarded != 5 || answers[2].PointsAwarded != 5 {
		t.Fatalf("expected split credit on question 2, got %+v", answers[1:])
	}
	if TotalScore(answers) != 10 {
		t.Fatalf("expected total 10, got %v", TotalScore(answers))
	}
}

func TestEvaluateAllValidation(t *testing.T) {
	e := NewEvaluator(10)
	quiz := domain.Quiz{ID: 7, Questions: []domain.Question{question(1, true, false), question(2, true, false)}}

	cases := []struct {
		name string
		subs []domain.AnswerSubmission
		want error
	}{
		{"empty", nil, domain.ErrNoAnswers},
		{"foreign question", []domain.AnswerSubmission{{QuestionID: 9, ChoiceID: 901}}, domain.ErrQuestionNotInQuiz},
		{"choice of another question", []domain.AnswerSubmission{{QuestionID: 1, ChoiceID: 201}}, domain.ErrChoiceNotInQuestion},
		{"duplicate pair", []domain.AnswerSubmission{{QuestionID: 1, ChoiceID: 100}, {QuestionID: 1, ChoiceID: 100}}, domain.ErrDuplicateAnswer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answers, err := e.EvaluateAll(quiz, tc.subs)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
			if answers != nil {
				t.Fatalf("expected no answers on failure, got %+v", answers)
			}
		})
	}
}

func TestTotalScoreIgnoresAnswerOrder(t *testing.T) {
	e := NewEvaluator(10)
	quiz := domain.Quiz{ID: 7, Questions: []domain.Question{
		question(1, true, false),
		question(2, true, false),
		question(3, true, true, true),
	}}
	orders := [][]domain.AnswerSubmission{
		{{QuestionID: 1, ChoiceID: 100}, {QuestionID: 2, ChoiceID: 200}, {QuestionID: 3, ChoiceID: 300}},
		{{QuestionID: 3, ChoiceID: 300}, {QuestionID: 1, ChoiceID: 100}, {QuestionID: 2, ChoiceID: 200}},
		{{QuestionID: 2, ChoiceID: 200}, {QuestionID: 3, ChoiceID: 300}, {QuestionID: 1, ChoiceID: 100}},
	}

	var first float64
	for i, subs := range orders {
		answers, err := e.EvaluateAll(quiz, subs)
		if err != nil {
			t.Fatalf("evaluate all: %v", err)
		}
		total := TotalScore(answers)
		if i == 0 {
			first = total
			continue
		}
		if total != first {
			t.Fatalf("order %d: expected %v, got %v", i, first, total)
		}
	}
	if first != 23.333333 {
		t.Fatalf("expected 23.333333, got %v", first)
	}
}

func TestTotalScoreThirdsAddUpToFullValue(t *testing.T) {
	third := 10.0 / 3
	answers := []domain.AttemptedAnswer{{PointsAwarded: third}, {PointsAwarded: third}, {PointsAwarded: third}}
	if got := TotalScore(answers); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestTotalScoreEmpty(t *testing.T) {
	if got := TotalScore(nil); got != 0 {
		t.Fatalf("expected 0 for no answers, got %v", got)
	}
}

// question builds question id with choices id*100+i flagged by correct.
func question(id int64, correct ...bool) domain.Question {
	q := domain.Question{ID: id, Text: "question"}
	for i, ok := range correct {
		q.Choices = append(q.Choices, domain.Choice{
			ID:         id*100 + int64(i),
			QuestionID: id,
			Text:       "choice",
			IsCorrect:  ok,
		})
	}
	return q
}
