package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Draft is the post being composed by a user: the selected destination and
// the collected content. It lives only for the duration of the conversation.
type Draft struct {
	ChannelID uint   `json:"channel_id"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	Caption   string `json:"caption"`
}

func (d Draft) HasContent() bool {
	return d.Kind != ""
}

type Storage struct {
	redis *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{
		redis: client,
	}
}

// Get returns the draft of a user; a missing draft is returned as the zero
// value, not an error.
func (s *Storage) Get(userID int64) (Draft, error) {
	data, err := s.redis.Get(context.Background(), fmt.Sprintf("%d", userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Draft{}, nil
		}
		return Draft{}, err
	}

	var draft Draft
	if err = json.Unmarshal([]byte(data), &draft); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

func (s *Storage) Set(userID int64, draft Draft, expiration time.Duration) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return s.redis.Set(context.Background(), fmt.Sprintf("%d", userID), data, expiration).Err()
}

func (s *Storage) Clear(userID int64) {
	s.redis.Del(context.Background(), fmt.Sprintf("%d", userID))
}
