package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"quiz-leaderboard-service/internal/app"
)

// WSHandler streams a quiz leaderboard over a websocket. Authenticated clients
// may also submit their attempt on the same connection.
type WSHandler struct {
	attempts *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type attemptResult struct {
	AttemptID int64   `json:"attemptId"`
	Score     float64 `json:"score"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	_, _, code := classify(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}

// ServeWS sends the current leaderboard, then every later snapshot, until the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil || quizID <= 0 {
		writeError(w, r, errMalformed)
		return
	}

	// Subscribe before upgrading so an unknown quiz is still a plain 404.
	initial, updates, cancel, err := h.attempts.Subscribe(r.Context(), quizID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writing.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "leaderboard", Payload: initial}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			send <- h.submit(r, quizID, inbound.Payload)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "unsupported", Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) submit(r *http.Request, quizID int64, raw json.RawMessage) outboundMessage[any] {
	user, err := mustUser(r)
	if err != nil {
		return errorMessage(err)
	}
	var payload replaceAnswersRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorMessage(errMalformed)
	}
	if err := validate.Struct(&payload); err != nil {
		return errorMessage(errMalformed)
	}
	attempt, err := h.attempts.Submit(r.Context(), user, quizID, toSubmissions(payload.Answers))
	if err != nil {
		return errorMessage(err)
	}
	return outboundMessage[any]{Type: "attemptResult", Payload: attemptResult{AttemptID: attempt.ID, Score: attempt.Score}}
}
