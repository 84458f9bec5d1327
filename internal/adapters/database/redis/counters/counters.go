package counters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage counts posts created per user per calendar day. Keys carry the day,
// so a day rollover simply starts a fresh key and the old one expires; no
// reset job is needed. INCR keeps the read-modify-write atomic.
type Storage struct {
	redis *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{
		redis: client,
	}
}

func key(userID int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", userID, day.Format("2006-01-02"))
}

// Get returns the number of posts the user created on the given day.
func (s *Storage) Get(ctx context.Context, userID int64, day time.Time) (int64, error) {
	count, err := s.redis.Get(ctx, key(userID, day)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// Incr increments the per-day counter and returns the new value.
func (s *Storage) Incr(ctx context.Context, userID int64, day time.Time) (int64, error) {
	k := key(userID, day)
	count, err := s.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	// Keep the key around past midnight for debugging, then let it expire.
	s.redis.Expire(ctx, k, 48*time.Hour)
	return count, nil
}
