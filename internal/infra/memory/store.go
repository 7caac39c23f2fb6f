package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"quiz-leaderboard-service/internal/app"
	"quiz-leaderboard-service/internal/domain"
)

// Store is an in-memory implementation of app.QuizStore and app.AttemptStore.
// It also serves as a QuizLoader for the caching QuizRepository.
//
// Attempt data is kept per quiz. A transaction clones the quiz's state under
// the quiz lock and swaps the clone in on commit, so readers only ever see
// fully applied transactions.
type Store struct {
	ids atomic.Int64

	mu          sync.RWMutex
	quizzes     map[int64]domain.Quiz
	states      map[int64]*quizState
	attemptQuiz map[int64]int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

type quizState struct {
	attempts    map[int64]domain.Attempt
	userAttempt map[int64]int64
	entries     map[int64]domain.LeaderboardEntry
	userEntry   map[int64]int64
}

func NewStore() *Store {
	return &Store{
		quizzes:     make(map[int64]domain.Quiz),
		states:      make(map[int64]*quizState),
		attemptQuiz: make(map[int64]int64),
		locks:       make(map[int64]*sync.Mutex),
	}
}

func newQuizState() *quizState {
	return &quizState{
		attempts:    make(map[int64]domain.Attempt),
		userAttempt: make(map[int64]int64),
		entries:     make(map[int64]domain.LeaderboardEntry),
		userEntry:   make(map[int64]int64),
	}
}

func (s *quizState) clone() *quizState {
	c := newQuizState()
	for id, a := range s.attempts {
		c.attempts[id] = cloneAttempt(a)
	}
	for user, id := range s.userAttempt {
		c.userAttempt[user] = id
	}
	for id, e := range s.entries {
		c.entries[id] = e
	}
	for user, id := range s.userEntry {
		c.userEntry[user] = id
	}
	return c
}

func cloneAttempt(a domain.Attempt) domain.Attempt {
	a.Answers = append([]domain.AttemptedAnswer(nil), a.Answers...)
	if a.EndTime != nil {
		end := *a.EndTime
		a.EndTime = &end
	}
	return a
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Choices = append([]domain.Choice(nil), question.Choices...)
		questions[i] = question
	}
	q.Questions = questions
	if q.CloseTime != nil {
		closeTime := *q.CloseTime
		q.CloseTime = &closeTime
	}
	return q
}

func (s *Store) nextID() int64 {
	return s.ids.Add(1)
}

// quizLock returns the lock scope of one quiz, creating it on first use.
func (s *Store) quizLock(quizID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if lock, ok := s.locks[quizID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[quizID] = lock
	return lock
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	quiz.ID = s.nextID()
	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		question.ID = s.nextID()
		question.QuizID = quiz.ID
		for j := range question.Choices {
			question.Choices[j].ID = s.nextID()
			question.Choices[j].QuestionID = question.ID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = cloneQuiz(*quiz)
	s.states[quiz.ID] = newQuizState()
	return nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	stored.Title = quiz.Title
	stored.Description = quiz.Description
	stored.OpenTime = quiz.OpenTime
	stored.CloseTime = nil
	if quiz.CloseTime != nil {
		closeTime := *quiz.CloseTime
		stored.CloseTime = &closeTime
	}
	stored.IsOpen = quiz.IsOpen
	s.quizzes[quiz.ID] = stored
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for attemptID := range s.states[quizID].attempts {
		delete(s.attemptQuiz, attemptID)
	}
	delete(s.quizzes, quizID)
	delete(s.states, quizID)
	return nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		q = cloneQuiz(q)
		q.Questions = nil
		quizzes = append(quizzes, q)
	}
	s.mu.RUnlock()

	sort.Slice(quizzes, func(i, j int) bool {
		if !quizzes[i].OpenTime.Equal(quizzes[j].OpenTime) {
			return quizzes[i].OpenTime.Before(quizzes[j].OpenTime)
		}
		return quizzes[i].ID < quizzes[j].ID
	})
	return quizzes, nil
}

// LoadQuiz returns the full quiz graph.
func (s *Store) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quiz{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *Store) Atomically(ctx context.Context, quizID int64, fn func(tx app.AttemptTx) error) error {
	lock := s.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	base, ok := s.states[quizID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrQuizNotFound
	}

	tx := &memoryTx{store: s, quizID: quizID, state: base.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for attemptID := range base.attempts {
		if _, kept := tx.state.attempts[attemptID]; !kept {
			delete(s.attemptQuiz, attemptID)
		}
	}
	for attemptID := range tx.state.attempts {
		s.attemptQuiz[attemptID] = quizID
	}
	s.states[quizID] = tx.state
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attempt{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizID, ok := s.attemptQuiz[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	attempt, ok := s.states[quizID].attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *Store) ListAttempts(ctx context.Context, quizID int64) ([]domain.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	state, ok := s.states[quizID]
	if !ok {
		s.mu.RUnlock()
		return nil, domain.ErrQuizNotFound
	}
	attempts := make([]domain.Attempt, 0, len(state.attempts))
	for _, a := range state.attempts {
		attempts = append(attempts, cloneAttempt(a))
	}
	s.mu.RUnlock()

	sort.Slice(attempts, func(i, j int) bool {
		if !attempts[i].StartTime.Equal(attempts[j].StartTime) {
			return attempts[i].StartTime.After(attempts[j].StartTime)
		}
		return attempts[i].ID > attempts[j].ID
	})
	return attempts, nil
}

func (s *Store) LeaderboardEntries(ctx context.Context, quizID int64) ([]domain.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	state, ok := s.states[quizID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	// Committed states are never mutated, so reading outside the lock is safe.
	return state.orderedEntries(), nil
}

func (s *quizState) orderedEntries() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// memoryTx mutates a private clone of one quiz's state.
type memoryTx struct {
	store  *Store
	quizID int64
	state  *quizState
}

func (tx *memoryTx) InsertAttempt(ctx context.Context, attempt *domain.Attempt) error {
	if _, exists := tx.state.userAttempt[attempt.UserID]; exists {
		return domain.ErrAlreadyAttempted
	}
	attempt.ID = tx.store.nextID()
	attempt.QuizID = tx.quizID
	stored := cloneAttempt(*attempt)
	stored.Answers = nil
	tx.state.attempts[attempt.ID] = stored
	tx.state.userAttempt[attempt.UserID] = attempt.ID
	return nil
}

func (tx *memoryTx) GetAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	attempt, ok := tx.state.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (tx *memoryTx) DeleteAttempt(ctx context.Context, attemptID int64) error {
	attempt, ok := tx.state.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	delete(tx.state.attempts, attemptID)
	delete(tx.state.userAttempt, attempt.UserID)
	return nil
}

func (tx *memoryTx) DeleteAnswers(ctx context.Context, attemptID int64) error {
	attempt, ok := tx.state.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Answers = nil
	tx.state.attempts[attemptID] = attempt
	return nil
}

func (tx *memoryTx) InsertAnswers(ctx context.Context, answers []domain.AttemptedAnswer) error {
	for i := range answers {
		attempt, ok := tx.state.attempts[answers[i].AttemptID]
		if !ok {
			return domain.ErrAttemptNotFound
		}
		answers[i].ID = tx.store.nextID()
		attempt.Answers = append(attempt.Answers, answers[i])
		tx.state.attempts[attempt.ID] = attempt
	}
	return nil
}

func (tx *memoryTx) Answers(ctx context.Context, attemptID int64) ([]domain.AttemptedAnswer, error) {
	attempt, ok := tx.state.attempts[attemptID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return append([]domain.AttemptedAnswer(nil), attempt.Answers...), nil
}

func (tx *memoryTx) SaveScore(ctx context.Context, attemptID int64, score float64, endTime *time.Time) error {
	attempt, ok := tx.state.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Score = score
	attempt.EndTime = nil
	if endTime != nil {
		end := *endTime
		attempt.EndTime = &end
	}
	tx.state.attempts[attemptID] = attempt
	return nil
}

func (tx *memoryTx) PutEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	if id, ok := tx.state.userEntry[entry.UserID]; ok {
		stored := tx.state.entries[id]
		stored.Score = entry.Score
		stored.Username = entry.Username
		tx.state.entries[id] = stored
		return nil
	}
	entry.ID = tx.store.nextID()
	entry.QuizID = tx.quizID
	entry.Rank = 0
	tx.state.entries[entry.ID] = entry
	tx.state.userEntry[entry.UserID] = entry.ID
	return nil
}

func (tx *memoryTx) DeleteEntry(ctx context.Context, userID int64) error {
	id, ok := tx.state.userEntry[userID]
	if !ok {
		return nil
	}
	delete(tx.state.entries, id)
	delete(tx.state.userEntry, userID)
	return nil
}

func (tx *memoryTx) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return tx.state.orderedEntries(), nil
}

func (tx *memoryTx) SetRanks(ctx context.Context, changes []domain.RankChange) error {
	for _, c := range changes {
		entry, ok := tx.state.entries[c.EntryID]
		if !ok {
			continue
		}
		entry.Rank = c.Rank
		tx.state.entries[c.EntryID] = entry
	}
	return nil
}
