package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"quiz-leaderboard-service/internal/domain"
	"quiz-leaderboard-service/internal/scoring"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// QuizService contains the quiz authoring use cases.
type QuizService struct {
	store   QuizStore
	quizzes QuizRepository
	now     func() time.Time
}

func NewQuizService(store QuizStore, quizzes QuizRepository, opts ...Option) *QuizService {
	o := buildOptions(opts)
	return &QuizService{store: store, quizzes: quizzes, now: o.now}
}

// CreateQuiz stores a new quiz owned by creator. A zero open time means now.
func (s *QuizService) CreateQuiz(ctx context.Context, creator domain.User, quiz domain.Quiz) (domain.Quiz, error) {
	now := s.now()
	quiz.ID = 0
	quiz.CreatorID = creator.ID
	if quiz.OpenTime.IsZero() {
		quiz.OpenTime = now
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	scoring.RecomputeIsOpen(&quiz, now)

	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	log.Printf("quiz %d created by user %d", quiz.ID, creator.ID)
	return quiz, nil
}

// GetQuiz returns the quiz with its open flag refreshed for the current time.
func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	scoring.RecomputeIsOpen(&quiz, s.now())
	return quiz, nil
}

// ListQuizzes returns quiz metadata with open flags refreshed.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	now := s.now()
	for i := range quizzes {
		scoring.RecomputeIsOpen(&quizzes[i], now)
	}
	return quizzes, nil
}

// UpdateQuiz rewrites title, description and the attempt window. Only the
// creator may update a quiz.
func (s *QuizService) UpdateQuiz(ctx context.Context, actor domain.User, update domain.Quiz) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, update.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatorID != actor.ID {
		return domain.Quiz{}, domain.ErrForbidden
	}

	quiz.Title = update.Title
	quiz.Description = update.Description
	if !update.OpenTime.IsZero() {
		quiz.OpenTime = update.OpenTime
	}
	quiz.CloseTime = update.CloseTime
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	scoring.RecomputeIsOpen(&quiz, s.now())

	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// DeleteQuiz removes the quiz and everything attached to it.
func (s *QuizService) DeleteQuiz(ctx context.Context, actor domain.User, quizID int64) error {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.CreatorID != actor.ID {
		return domain.ErrForbidden
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidate(ctx, quizID)
	log.Printf("quiz %d deleted by user %d", quizID, actor.ID)
	return nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID int64) {
	if err := s.quizzes.Invalidate(ctx, quizID); err != nil {
		log.Printf("invalidate quiz %d: %v", quizID, err)
	}
}

func validateQuiz(quiz domain.Quiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return domain.Invalid(domain.ErrInvalidQuiz, "title is required")
	}
	if quiz.CloseTime != nil && !quiz.CloseTime.After(quiz.OpenTime) {
		return domain.Invalid(domain.ErrInvalidQuiz, "close time must be after open time")
	}
	for i, q := range quiz.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return domain.Invalid(domain.ErrInvalidQuiz, "question %d has no text", i+1)
		}
		if len(q.Choices) == 0 {
			return domain.Invalid(domain.ErrInvalidQuiz, "question %d has no choices", i+1)
		}
		for j, c := range q.Choices {
			if strings.TrimSpace(c.Text) == "" {
				return domain.Invalid(domain.ErrInvalidQuiz, "question %d choice %d has no text", i+1, j+1)
			}
		}
	}
	return nil
}
