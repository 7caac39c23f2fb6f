package http

import (
	"net/http"

	"quiz-leaderboard-service/internal/app"
)

// NewRouter wires every REST and websocket route behind the access log.
func NewRouter(quizzes *app.QuizService, attempts *app.AttemptService, auth *Authenticator) http.Handler {
	quizHandler := NewQuizHandler(quizzes, attempts)
	attemptHandler := NewAttemptHandler(attempts)
	wsHandler := NewWSHandler(attempts)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Handle("POST /api/quizzes", auth.Require(quizHandler.Create))
	mux.HandleFunc("GET /api/quizzes", quizHandler.List)
	mux.HandleFunc("GET /api/quizzes/{id}", quizHandler.Detail)
	mux.Handle("PUT /api/quizzes/{id}", auth.Require(quizHandler.Update))
	mux.Handle("DELETE /api/quizzes/{id}", auth.Require(quizHandler.Delete))
	mux.Handle("GET /api/quizzes/{id}/attempts", auth.Require(quizHandler.Attempts))
	mux.HandleFunc("GET /api/quizzes/{id}/leaderboard", quizHandler.Leaderboard)

	mux.Handle("POST /api/attempts", auth.Require(attemptHandler.Submit))
	mux.Handle("GET /api/attempts/{id}", auth.Require(attemptHandler.Get))
	mux.Handle("PUT /api/attempts/{id}", auth.Require(attemptHandler.Replace))
	mux.Handle("DELETE /api/attempts/{id}", auth.Require(attemptHandler.Delete))

	mux.Handle("GET /ws/leaderboard", auth.Optional(wsHandler.ServeWS))

	return logRequests(mux)
}
