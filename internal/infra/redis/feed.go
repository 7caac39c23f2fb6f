package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"quiz-leaderboard-service/internal/domain"
)

// Feed fans leaderboard snapshots out through Redis pub/sub so every instance
// of the service can push updates to its own websocket clients.
// Snapshots are published as JSON: PUBLISH quiz:{quizID}:leaderboard {json}
type Feed struct {
	client *redis.Client
}

func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func (f *Feed) Publish(ctx context.Context, lb domain.Leaderboard) error {
	payload, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channel(lb.QuizID), payload).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so snapshots
// published after it returns are not missed.
func (f *Feed) Subscribe(ctx context.Context, quizID int64) (<-chan domain.Leaderboard, func(), error) {
	ps := f.client.Subscribe(ctx, channel(quizID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe leaderboard %d: %w", quizID, err)
	}

	out := make(chan domain.Leaderboard, 8)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var lb domain.Leaderboard
			if err := json.Unmarshal([]byte(msg.Payload), &lb); err != nil {
				log.Printf("decode leaderboard %d: %v", quizID, err)
				continue
			}
			select {
			case out <- lb:
			default:
				// Slow subscriber: replace its oldest snapshot instead of blocking.
				select {
				case <-out:
				default:
				}
				out <- lb
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = ps.Close() })
	}
	return out, cancel, nil
}

func channel(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":leaderboard"
}
