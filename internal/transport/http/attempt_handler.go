package http

import (
	"net/http"

	"quiz-leaderboard-service/internal/app"
	"quiz-leaderboard-service/internal/domain"
)

type AttemptHandler struct {
	attempts *app.AttemptService
}

func NewAttemptHandler(attempts *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := mustUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	attempt, err := h.attempts.Submit(r.Context(), user, req.Quiz, toSubmissions(req.Answers))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeReview(w, r, user, attempt, http.StatusCreated)
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	review, err := h.attempts.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAttemptView(review))
}

func (h *AttemptHandler) Replace(w http.ResponseWriter, r *http.Request) {
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
	var req replaceAnswersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	attempt, err := h.attempts.ReplaceAnswers(r.Context(), user, id, toSubmissions(req.Answers))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeReview(w, r, user, attempt, http.StatusOK)
}

func (h *AttemptHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.attempts.Delete(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttemptHandler) writeReview(w http.ResponseWriter, r *http.Request, user domain.User, attempt domain.Attempt, status int) {
	review, err := h.attempts.Get(r.Context(), user, attempt.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, newAttemptView(review))
}
