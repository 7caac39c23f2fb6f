package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-leaderboard-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	store := NewStore()
	quiz := sampleQuiz()
	if err := store.CreateQuiz(context.Background(), &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	got, err := repo.GetQuiz(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(got.Questions) != 1 || len(got.Questions[0].Choices) != 2 {
		t.Fatalf("expected full quiz graph from cache, got %+v", got)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	store := NewStore()
	quiz := sampleQuiz()
	if err := store.CreateQuiz(context.Background(), &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	_, _ = repo.GetQuiz(context.Background(), quiz.ID)
	quiz.Title = "Renamed"
	if err := store.UpdateQuiz(context.Background(), quiz); err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if err := repo.Invalidate(context.Background(), quiz.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	got, err := repo.GetQuiz(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 2 || got.Title != "Renamed" {
		t.Fatalf("expected reload after invalidate, calls=%d title=%q", loader.calls, got.Title)
	}
}

func TestQuizRepositoryDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStore()}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuiz(context.Background(), 42); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected quiz not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.calls)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
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
