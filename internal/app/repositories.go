package app

import (
	"context"
	"time"

	"quiz-leaderboard-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	// Invalidate drops cached content after the quiz was written.
	Invalidate(ctx context.Context, quizID int64) error
}

// QuizStore persists quizzes together with their questions and choices.
type QuizStore interface {
	// CreateQuiz stores the whole quiz graph and assigns IDs in place.
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	// UpdateQuiz rewrites quiz metadata; questions are left untouched.
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	// DeleteQuiz removes the quiz with its questions, attempts and leaderboard.
	DeleteQuiz(ctx context.Context, quizID int64) error
	// ListQuizzes returns quiz metadata ordered by open time.
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// AttemptStore is the durable home of attempts and leaderboard entries.
type AttemptStore interface {
	// Atomically runs fn as a single transaction holding the quiz's lock scope.
	// Writers of the same quiz are serialized; other quizzes are unaffected.
	Atomically(ctx context.Context, quizID int64, fn func(tx AttemptTx) error) error

	GetAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error)
	// ListAttempts returns the quiz's attempts with answers, newest first.
	ListAttempts(ctx context.Context, quizID int64) ([]domain.Attempt, error)
	// LeaderboardEntries returns entries ordered by score desc, id asc.
	LeaderboardEntries(ctx context.Context, quizID int64) ([]domain.LeaderboardEntry, error)
}

// AttemptTx is the write surface available inside AttemptStore.Atomically.
// Every call is scoped to the quiz the transaction was opened for.
type AttemptTx interface {
	// InsertAttempt assigns the ID; a second attempt by the user fails with domain.ErrAlreadyAttempted.
	InsertAttempt(ctx context.Context, attempt *domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error)
	DeleteAttempt(ctx context.Context, attemptID int64) error

	DeleteAnswers(ctx context.Context, attemptID int64) error
	// InsertAnswers assigns IDs in place.
	InsertAnswers(ctx context.Context, answers []domain.AttemptedAnswer) error
	Answers(ctx context.Context, attemptID int64) ([]domain.AttemptedAnswer, error)
	SaveScore(ctx context.Context, attemptID int64, score float64, endTime *time.Time) error

	// PutEntry creates or updates the (quiz, user) entry score; stored ranks are kept.
	PutEntry(ctx context.Context, entry domain.LeaderboardEntry) error
	DeleteEntry(ctx context.Context, userID int64) error
	Entries(ctx context.Context) ([]domain.LeaderboardEntry, error)
	SetRanks(ctx context.Context, changes []domain.RankChange) error
}

// LeaderboardFeed fans leaderboard snapshots out to live subscribers.
// The caller must invoke the returned cancel function to avoid leaks.
type LeaderboardFeed interface {
	Publish(ctx context.Context, lb domain.Leaderboard) error
	Subscribe(ctx context.Context, quizID int64) (<-chan domain.Leaderboard, func(), error)
}
