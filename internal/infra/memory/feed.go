package memory

import (
	"context"
	"sync"

	"quiz-leaderboard-service/internal/domain"
)

// Feed is an in-process implementation of app.LeaderboardFeed.
type Feed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Leaderboard]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[int64]map[chan domain.Leaderboard]struct{}),
	}
}

func (f *Feed) Publish(_ context.Context, lb domain.Leaderboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[lb.QuizID] {
		select {
		case ch <- lb:
		default:
			// Slow subscriber: replace its oldest snapshot instead of blocking.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return nil
}

func (f *Feed) Subscribe(_ context.Context, quizID int64) (<-chan domain.Leaderboard, func(), error) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[quizID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many live subscriptions a quiz has.
func (f *Feed) Subscribers(quizID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
