package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-leaderboard-service/internal/app"
	"quiz-leaderboard-service/internal/domain"
	"quiz-leaderboard-service/internal/infra/memory"
	"quiz-leaderboard-service/internal/scoring"
)

var (
	alice = domain.User{ID: 1, Username: "alice"}
	bob   = domain.User{ID: 2, Username: "bob"}
	carol = domain.User{ID: 3, Username: "carol"}
)

type testEnv struct {
	store    *memory.Store
	counting *countingStore
	feed     *memory.Feed
	quizzes  *app.QuizService
	attempts *app.AttemptService

	mu  sync.Mutex
	now time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store: memory.NewStore(),
		feed:  memory.NewFeed(),
		now:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.counting = &countingStore{AttemptStore: env.store}
	repo := memory.NewQuizRepository(env.store, time.Minute)
	clock := app.WithClock(env.clock)
	env.quizzes = app.NewQuizService(env.store, repo, clock)
	env.attempts = app.NewAttemptService(env.counting, repo, scoring.NewEvaluator(10), env.feed, clock)
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// countingStore records how many ranks reach storage.
type countingStore struct {
	app.AttemptStore

	mu          sync.Mutex
	rankWrites  int
	rankUpdates int
}

func (s *countingStore) Atomically(ctx context.Context, quizID int64, fn func(tx app.AttemptTx) error) error {
	return s.AttemptStore.Atomically(ctx, quizID, func(tx app.AttemptTx) error {
		return fn(&countingTx{AttemptTx: tx, store: s})
	})
}

func (s *countingStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankWrites, s.rankUpdates = 0, 0
}

func (s *countingStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankWrites, s.rankUpdates
}

type countingTx struct {
	app.AttemptTx
	store *countingStore
}

func (tx *countingTx) SetRanks(ctx context.Context, changes []domain.RankChange) error {
	tx.store.mu.Lock()
	tx.store.rankWrites++
	tx.store.rankUpdates += len(changes)
	tx.store.mu.Unlock()
	return tx.AttemptTx.SetRanks(ctx, changes)
}

// newQuiz builds a quiz from correctness flags: one slice per question.
func newQuiz(title string, questions ...[]bool) domain.Quiz {
	quiz := domain.Quiz{Title: title}
	for i, flags := range questions {
		q := domain.Question{Text: title + " question " + string(rune('A'+i))}
		for j, correct := range flags {
			q.Choices = append(q.Choices, domain.Choice{Text: string(rune('A' + j)), IsCorrect: correct})
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}

func (e *testEnv) createQuiz(t *testing.T, quiz domain.Quiz) domain.Quiz {
	t.Helper()
	created, err := e.quizzes.CreateQuiz(context.Background(), alice, quiz)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return created
}

func (e *testEnv) submit(t *testing.T, user domain.User, quiz domain.Quiz, subs ...domain.AnswerSubmission) domain.Attempt {
	t.Helper()
	attempt, err := e.attempts.Submit(context.Background(), user, quiz.ID, subs)
	if err != nil {
		t.Fatalf("submit for %s: %v", user.Username, err)
	}
	return attempt
}

// pick selects choice index j of question index i.
func pick(quiz domain.Quiz, i, j int) domain.AnswerSubmission {
	q := quiz.Questions[i]
	return domain.AnswerSubmission{QuestionID: q.ID, ChoiceID: q.Choices[j].ID}
}

func (e *testEnv) entries(t *testing.T, quizID int64) []domain.LeaderboardEntry {
	t.Helper()
	lb, err := e.attempts.Leaderboard(context.Background(), quizID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	return lb.Entries
}
