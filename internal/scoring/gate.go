package scoring

import (
	"time"

	"quiz-leaderboard-service/internal/domain"
)

// IsOpenForAttempt reports whether the quiz still accepts attempts at now.
// A quiz without a close time never closes.
func IsOpenForAttempt(quiz domain.Quiz, now time.Time) bool {
	if quiz.CloseTime == nil {
		return true
	}
	return quiz.CloseTime.After(now)
}

// RecomputeIsOpen refreshes the denormalized open flag. Call it on every save
// and on every read so the flag never drifts from IsOpenForAttempt.
func RecomputeIsOpen(quiz *domain.Quiz, now time.Time) {
	quiz.IsOpen = IsOpenForAttempt(*quiz, now)
}

// CheckAttemptWindow is the gate consulted before any answer is stored.
func CheckAttemptWindow(quiz domain.Quiz, now time.Time) error {
	if now.Before(quiz.OpenTime) {
		return domain.ErrQuizNotOpenYet
	}
	if !IsOpenForAttempt(quiz, now) {
		return domain.ErrQuizClosed
	}
	return nil
}

// AnswersFinal reports whether no attempt on the quiz can change any more,
// which is when its answer key may be shown to attempters.
func AnswersFinal(quiz domain.Quiz, now time.Time) bool {
	return !IsOpenForAttempt(quiz, now)
}
