package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"quiz-leaderboard-service/internal/domain"
)

var validate = validator.New()

type choiceRequest struct {
	Text      string `json:"text" validate:"required,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

type questionRequest struct {
	Text    string          `json:"text" validate:"required"`
	Choices []choiceRequest `json:"choices" validate:"required,min=1,dive"`
}

type createQuizRequest struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description"`
	OpenTime    *time.Time        `json:"open_time"`
	CloseTime   *time.Time        `json:"close_time"`
	Questions   []questionRequest `json:"questions" validate:"dive"`
}

type updateQuizRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	OpenTime    *time.Time `json:"open_time"`
	CloseTime   *time.Time `json:"close_time"`
}

type answerRequest struct {
	Question       int64 `json:"question" validate:"required,gt=0"`
	SelectedChoice int64 `json:"selected_choice" validate:"required,gt=0"`
}

// submitRequest leaves quiz and answers unchecked here so the service reports
// its own missing-quiz and empty-answers errors.
type submitRequest struct {
	Quiz    int64           `json:"quiz"`
	Answers []answerRequest `json:"answers" validate:"dive"`
}

type replaceAnswersRequest struct {
	Answers []answerRequest `json:"answers" validate:"dive"`
}

func (r createQuizRequest) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		Title:       r.Title,
		Description: r.Description,
		CloseTime:   r.CloseTime,
	}
	if r.OpenTime != nil {
		quiz.OpenTime = *r.OpenTime
	}
	for _, q := range r.Questions {
		question := domain.Question{Text: q.Text}
		for _, c := range q.Choices {
			question.Choices = append(question.Choices, domain.Choice{Text: c.Text, IsCorrect: c.IsCorrect})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func (r updateQuizRequest) toDomain(id int64) domain.Quiz {
	quiz := domain.Quiz{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		CloseTime:   r.CloseTime,
	}
	if r.OpenTime != nil {
		quiz.OpenTime = *r.OpenTime
	}
	return quiz
}

func toSubmissions(answers []answerRequest) []domain.AnswerSubmission {
	subs := make([]domain.AnswerSubmission, 0, len(answers))
	for _, a := range answers {
		subs = append(subs, domain.AnswerSubmission{QuestionID: a.Question, ChoiceID: a.SelectedChoice})
	}
	return subs
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errMalformed, r.PathValue("id"))
	}
	return id, nil
}
