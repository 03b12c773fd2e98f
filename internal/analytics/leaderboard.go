package analytics

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/redis"
)

// SortedSet is the slice of Redis the leaderboard uses. *redis.Client
// satisfies it.
type SortedSet interface {
	ZIncrBy(ctx context.Context, key, member string, incr float64) error
	ZTop(ctx context.Context, key string, n int) ([]redis.Member, error)
}

// Leaderboard ranks rejected words in a Redis sorted set shared by every
// analytics replica.
type Leaderboard struct {
	set SortedSet
	key string
}

func NewLeaderboard(set SortedSet, key string) *Leaderboard {
	return &Leaderboard{set: set, key: key}
}

// Record counts event when it rejected its word.
func (l *Leaderboard) Record(ctx context.Context, event VerificationEvent) error {
	if !event.Rejected() {
		return nil
	}
	if err := l.set.ZIncrBy(ctx, l.key, event.Word, 1); err != nil {
		return fmt.Errorf("ranking rejected word %q: %w", event.Word, err)
	}
	return nil
}

// Top returns the n most rejected words.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]WordCount, error) {
	members, err := l.set.ZTop(ctx, l.key, n)
	if err != nil {
		return nil, err
	}
	out := make([]WordCount, 0, len(members))
	for _, m := range members {
		out = append(out, WordCount{Word: m.Name, Count: int64(m.Score)})
	}
	return out, nil
}
