package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-leaderboard-service/internal/domain"
	"quiz-leaderboard-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	quizID, loader := seededLoader(t)
	repo := NewQuizRepository(client, loader, time.Minute)

	_, err = repo.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(repo.key(quizID)) {
		t.Fatalf("expected quiz document in redis")
	}
	if ttl := mr.TTL(repo.key(quizID)); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with jitter, got %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	got, err := repo.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(got.Questions) != 1 || got.Questions[0].CorrectCount() != 1 {
		t.Fatalf("expected correctness to survive the cache, got %+v", got)
	}
}

func TestQuizRepositoryInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	quizID, loader := seededLoader(t)
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetQuiz(context.Background(), quizID)
	if err := repo.Invalidate(context.Background(), quizID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(repo.key(quizID)) {
		t.Fatalf("expected redis key to be removed")
	}

	_, _ = repo.GetQuiz(context.Background(), quizID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuizRepositoryIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	quizID, loader := seededLoader(t)
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)
	if err := mr.Set(repo.key(quizID), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	got, err := repo.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.ID != quizID || loader.calls != 1 {
		t.Fatalf("expected fallback to loader, got quiz %d calls %d", got.ID, loader.calls)
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewStore()}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 99); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected nothing cached, got keys %v", mr.Keys())
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func seededLoader(t *testing.T) (int64, *countingLoader) {
	t.Helper()
	store := memory.NewStore()
	quiz := sampleQuiz()
	if err := store.CreateQuiz(context.Background(), &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz.ID, &countingLoader{QuizLoader: store}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		CreatorID: 1,
		Title:     "Arithmetic",
		OpenTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsOpen:    true,
		Questions: []domain.Question{
			{
				Text: "What is 2 + 2?",
				Choices: []domain.Choice{
					{Text: "3", IsCorrect: false},
					{Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
