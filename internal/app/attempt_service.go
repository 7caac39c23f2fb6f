package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-leaderboard-service/internal/domain"
	"quiz-leaderboard-service/internal/scoring"
)

// AttemptReview pairs a scored attempt with the quiz content it answered.
// ShowKey reports whether the quiz's correct answers may be shown with it.
type AttemptReview struct {
	Attempt domain.Attempt
	Quiz    domain.Quiz
	ShowKey bool
}

// AttemptService contains the attempt, scoring and ranking use cases.
type AttemptService struct {
	attempts  AttemptStore
	quizzes   QuizRepository
	evaluator scoring.Evaluator
	feed      LeaderboardFeed
	now       func() time.Time
}

// NewAttemptService wires the attempt use cases. feed may be nil.
func NewAttemptService(attempts AttemptStore, quizzes QuizRepository, evaluator scoring.Evaluator, feed LeaderboardFeed, opts ...Option) *AttemptService {
	o := buildOptions(opts)
	return &AttemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		evaluator: evaluator,
		feed:      feed,
		now:       o.now,
	}
}

// Submit creates the user's single attempt for a quiz, scores it and reranks
// the quiz leaderboard, all in one transaction.
func (s *AttemptService) Submit(ctx context.Context, user domain.User, quizID int64, submissions []domain.AnswerSubmission) (domain.Attempt, error) {
	if quizID <= 0 {
		return domain.Attempt{}, domain.ErrMissingQuiz
	}
	quiz, answers, now, err := s.prepare(ctx, quizID, submissions)
	if err != nil {
		return domain.Attempt{}, err
	}

	attempt := domain.Attempt{
		QuizID:    quiz.ID,
		UserID:    user.ID,
		Username:  user.Username,
		StartTime: now,
	}
	var lb domain.Leaderboard
	err = s.attempts.Atomically(ctx, quiz.ID, func(tx AttemptTx) error {
		if err := tx.InsertAttempt(ctx, &attempt); err != nil {
			return err
		}
		standings, err := s.applyAnswers(ctx, tx, &attempt, answers, now)
		if err != nil {
			return err
		}
		lb = s.snapshot(quiz, standings)
		return nil
	})
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("submit attempt: %w", err)
	}

	log.Printf("attempt %d by user %d on quiz %d scored %.2f", attempt.ID, user.ID, quiz.ID, attempt.Score)
	s.publish(ctx, lb)
	return attempt, nil
}

// ReplaceAnswers discards every stored answer of the attempt and scores the new
// list in their place. Only the owner may replace answers.
func (s *AttemptService) ReplaceAnswers(ctx context.Context, user domain.User, attemptID int64, submissions []domain.AnswerSubmission) (domain.Attempt, error) {
	current, err := s.owned(ctx, user, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	quiz, answers, now, err := s.prepare(ctx, current.QuizID, submissions)
	if err != nil {
		return domain.Attempt{}, err
	}

	var (
		attempt domain.Attempt
		lb      domain.Leaderboard
	)
	err = s.attempts.Atomically(ctx, quiz.ID, func(tx AttemptTx) error {
		attempt, err = tx.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.UserID != user.ID {
			return domain.ErrAttemptNotFound
		}
		if err := tx.DeleteAnswers(ctx, attemptID); err != nil {
			return err
		}
		standings, err := s.applyAnswers(ctx, tx, &attempt, answers, now)
		if err != nil {
			return err
		}
		lb = s.snapshot(quiz, standings)
		return nil
	})
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("replace answers: %w", err)
	}

	log.Printf("attempt %d answers replaced, score %.2f", attempt.ID, attempt.Score)
	s.publish(ctx, lb)
	return attempt, nil
}

// Delete removes the owner's attempt and its leaderboard entry.
func (s *AttemptService) Delete(ctx context.Context, user domain.User, attemptID int64) error {
	current, err := s.owned(ctx, user, attemptID)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return err
	}

	var lb domain.Leaderboard
	err = s.attempts.Atomically(ctx, quiz.ID, func(tx AttemptTx) error {
		attempt, err := tx.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.UserID != user.ID {
			return domain.ErrAttemptNotFound
		}
		if err := tx.DeleteAttempt(ctx, attemptID); err != nil {
			return err
		}
		if err := tx.DeleteEntry(ctx, attempt.UserID); err != nil {
			return err
		}
		_, standings, err := s.rerankQuiz(ctx, tx)
		if err != nil {
			return err
		}
		lb = s.snapshot(quiz, standings)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}

	s.publish(ctx, lb)
	return nil
}

// Get returns the owner's attempt with the quiz content needed to review it.
// The answer key is withheld while the owner can still replace answers.
func (s *AttemptService) Get(ctx context.Context, user domain.User, attemptID int64) (AttemptReview, error) {
	attempt, err := s.owned(ctx, user, attemptID)
	if err != nil {
		return AttemptReview{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return AttemptReview{}, err
	}
	return AttemptReview{Attempt: attempt, Quiz: quiz, ShowKey: s.keyVisible(quiz, user)}, nil
}

// ListForQuiz returns every attempt of a quiz for review. Only the creator may
// list attempts while the quiz still accepts answers.
func (s *AttemptService) ListForQuiz(ctx context.Context, viewer domain.User, quizID int64) ([]AttemptReview, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !s.keyVisible(quiz, viewer) {
		return nil, fmt.Errorf("%w: attempts of quiz %d are hidden until it closes", domain.ErrForbidden, quizID)
	}
	attempts, err := s.attempts.ListAttempts(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("%w: no attempts for quiz %d", domain.ErrAttemptNotFound, quizID)
	}

	reviews := make([]AttemptReview, 0, len(attempts))
	for _, a := range attempts {
		reviews = append(reviews, AttemptReview{Attempt: a, Quiz: quiz, ShowKey: true})
	}
	return reviews, nil
}

// Rescore recomputes an attempt's score from its stored answers and reranks.
// Rescoring an unchanged attempt rewrites the same score and no ranks.
func (s *AttemptService) Rescore(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	current, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return domain.Attempt{}, err
	}

	var (
		attempt domain.Attempt
		lb      domain.Leaderboard
	)
	err = s.attempts.Atomically(ctx, quiz.ID, func(tx AttemptTx) error {
		attempt, err = tx.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if err := s.scoreAttempt(ctx, tx, &attempt, attempt.EndTime); err != nil {
			return err
		}
		_, standings, err := s.rerankQuiz(ctx, tx)
		if err != nil {
			return err
		}
		lb = s.snapshot(quiz, standings)
		return nil
	})
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("rescore attempt: %w", err)
	}

	s.publish(ctx, lb)
	return attempt, nil
}

// RerankQuiz recomputes every rank of the quiz and reports how many were rewritten.
func (s *AttemptService) RerankQuiz(ctx context.Context, quizID int64) (int, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}

	var (
		written int
		lb      domain.Leaderboard
	)
	err = s.attempts.Atomically(ctx, quizID, func(tx AttemptTx) error {
		var (
			standings []domain.LeaderboardEntry
			err       error
		)
		written, standings, err = s.rerankQuiz(ctx, tx)
		if err != nil {
			return err
		}
		lb = s.snapshot(quiz, standings)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rerank quiz %d: %w", quizID, err)
	}
	if written > 0 {
		s.publish(ctx, lb)
	}
	return written, nil
}

// Leaderboard returns the ranked entries of a quiz.
func (s *AttemptService) Leaderboard(ctx context.Context, quizID int64) (domain.Leaderboard, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries, err := s.attempts.LeaderboardEntries(ctx, quiz.ID)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
	}
	return s.snapshot(quiz, entries), nil
}

// Subscribe returns the current leaderboard and a channel of later snapshots.
// Snapshots older than one already delivered are dropped, so a subscriber
// never moves back to a stale leaderboard. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *AttemptService) Subscribe(ctx context.Context, quizID int64) (domain.Leaderboard, <-chan domain.Leaderboard, func(), error) {
	if s.feed == nil {
		return domain.Leaderboard{}, nil, nil, fmt.Errorf("leaderboard feed not configured")
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, nil, nil, err
	}
	updates, stop, err := s.feed.Subscribe(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, nil, nil, err
	}

	// Read under the quiz lock so the initial snapshot is ordered against
	// every published one.
	var initial domain.Leaderboard
	err = s.attempts.Atomically(ctx, quizID, func(tx AttemptTx) error {
		entries, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		initial = s.snapshot(quiz, entries)
		return nil
	})
	if err != nil {
		stop()
		return domain.Leaderboard{}, nil, nil, fmt.Errorf("leaderboard: %w", err)
	}

	done := make(chan struct{})
	out := make(chan domain.Leaderboard)
	go func() {
		defer close(out)
		last := initial.UpdatedAt
		for lb := range updates {
			if lb.UpdatedAt.Before(last) {
				continue
			}
			last = lb.UpdatedAt
			select {
			case out <- lb:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			stop()
		})
	}
	return initial, out, cancel, nil
}

// prepare loads the quiz, consults the lifecycle gate and evaluates the
// submission. Nothing is written.
func (s *AttemptService) prepare(ctx context.Context, quizID int64, submissions []domain.AnswerSubmission) (domain.Quiz, []domain.AttemptedAnswer, time.Time, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, time.Time{}, err
	}
	now := s.now()
	if err := scoring.CheckAttemptWindow(quiz, now); err != nil {
		return domain.Quiz{}, nil, time.Time{}, err
	}
	answers, err := s.evaluator.EvaluateAll(quiz, submissions)
	if err != nil {
		return domain.Quiz{}, nil, time.Time{}, err
	}
	return quiz, answers, now, nil
}

func (s *AttemptService) owned(ctx context.Context, user domain.User, attemptID int64) (domain.Attempt, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != user.ID {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// keyVisible reports whether viewer may see the quiz's correct answers: the
// creator always, everyone else once no attempt can change.
func (s *AttemptService) keyVisible(quiz domain.Quiz, viewer domain.User) bool {
	return viewer.ID == quiz.CreatorID || scoring.AnswersFinal(quiz, s.now())
}

// applyAnswers stores freshly evaluated answers, scores the attempt and reranks.
func (s *AttemptService) applyAnswers(ctx context.Context, tx AttemptTx, attempt *domain.Attempt, answers []domain.AttemptedAnswer, now time.Time) ([]domain.LeaderboardEntry, error) {
	for i := range answers {
		answers[i].ID = 0
		answers[i].AttemptID = attempt.ID
	}
	if err := tx.InsertAnswers(ctx, answers); err != nil {
		return nil, err
	}
	if err := s.scoreAttempt(ctx, tx, attempt, &now); err != nil {
		return nil, err
	}
	_, standings, err := s.rerankQuiz(ctx, tx)
	return standings, err
}

// scoreAttempt sums the stored answers, persists the score and mirrors it onto
// the user's leaderboard entry.
func (s *AttemptService) scoreAttempt(ctx context.Context, tx AttemptTx, attempt *domain.Attempt, endTime *time.Time) error {
	answers, err := tx.Answers(ctx, attempt.ID)
	if err != nil {
		return err
	}
	total := scoring.TotalScore(answers)
	if err := tx.SaveScore(ctx, attempt.ID, total, endTime); err != nil {
		return err
	}
	attempt.Answers = answers
	attempt.Score = total
	attempt.EndTime = endTime

	return tx.PutEntry(ctx, domain.LeaderboardEntry{
		QuizID:   attempt.QuizID,
		UserID:   attempt.UserID,
		Username: attempt.Username,
		Score:    total,
	})
}

// rerankQuiz writes back only the ranks that changed and returns the
// resulting standings.
func (s *AttemptService) rerankQuiz(ctx context.Context, tx AttemptTx) (int, []domain.LeaderboardEntry, error) {
	entries, err := tx.Entries(ctx)
	if err != nil {
		return 0, nil, err
	}
	changes := scoring.Rerank(entries)
	if len(changes) > 0 {
		if err := tx.SetRanks(ctx, changes); err != nil {
			return 0, nil, err
		}
	}
	return len(changes), scoring.Standings(entries), nil
}

// snapshot stamps a leaderboard. Snapshots taken inside the quiz lock scope
// are therefore ordered by UpdatedAt.
func (s *AttemptService) snapshot(quiz domain.Quiz, entries []domain.LeaderboardEntry) domain.Leaderboard {
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return domain.Leaderboard{
		QuizID:    quiz.ID,
		QuizTitle: quiz.Title,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

func (s *AttemptService) publish(ctx context.Context, lb domain.Leaderboard) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, lb); err != nil {
		log.Printf("publish leaderboard %d: %v", lb.QuizID, err)
	}
}
