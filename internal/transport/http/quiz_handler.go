package http

import (
	"net/http"

	"quiz-leaderboard-service/internal/app"
)

type QuizHandler struct {
	quizzes  *app.QuizService
	attempts *app.AttemptService
}

func NewQuizHandler(quizzes *app.QuizService, attempts *app.AttemptService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, attempts: attempts}
}

func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := mustUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), user, req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Quiz created successfully",
		"quiz_id": quiz.ID,
	})
}

func (h *QuizHandler) List(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]quizSummaryView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, newQuizSummaryView(q))
	}
	writeJSON(w, http.StatusOK, views)
}

// Detail renders the quiz for taking it: no correctness, plus the current leaderboard.
func (h *QuizHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := h.quizzes.GetQuiz(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lb, err := h.attempts.Leaderboard(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizDetailView(quiz, lb))
}

func (h *QuizHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := mustUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), user, req.toDomain(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizSummaryView(quiz))
}

func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := mustUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.quizzes.DeleteQuiz(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuizHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	user, err := mustUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reviews, err := h.attempts.ListForQuiz(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]attemptView, 0, len(reviews))
	for _, review := range reviews {
		views = append(views, newAttemptView(review))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *QuizHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lb, err := h.attempts.Leaderboard(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeaderboardView(lb))
}
