package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"quiz-leaderboard-service/internal/domain"
)

var (
	errMalformed    = fmt.Errorf("%w: malformed request", domain.ErrValidation)
	errUnauthorized = errors.New("authentication required")
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCodes is checked in order; the first match names the error for clients.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrAlreadyAttempted, "already_attempted"},
	{domain.ErrQuizNotOpenYet, "quiz_not_open_yet"},
	{domain.ErrQuizClosed, "quiz_closed"},
	{domain.ErrQuizNotFound, "quiz_not_found"},
	{domain.ErrAttemptNotFound, "attempt_not_found"},
	{domain.ErrMissingQuiz, "missing_quiz"},
	{domain.ErrNoAnswers, "no_answers"},
	{domain.ErrQuestionNotInQuiz, "question_not_in_quiz"},
	{domain.ErrChoiceNotInQuestion, "choice_not_in_question"},
	{domain.ErrDuplicateAnswer, "duplicate_answer"},
	{domain.ErrInvalidQuiz, "invalid_quiz"},
	{errMalformed, "malformed_request"},
}

// classify maps an error to its HTTP status, kind and code.
func classify(err error) (int, string, string) {
	code := ""
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "unauthorized"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation", code
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", code
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict", code
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden"
	default:
		return http.StatusInternalServerError, "internal", "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		message = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
