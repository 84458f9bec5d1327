package states

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
)

// Storage keeps the per-user composer state. A state is a short tag plus an
// optional context string, packed as "state:context".
type Storage struct {
	redis *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{
		redis: client,
	}
}

type State struct {
	State        string
	StateContext string
}

func (s *Storage) Get(userID int64) (State, error) {
	stateData, err := s.redis.Get(context.Background(), fmt.Sprintf("%d", userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, err
	}
	stateSlice := strings.SplitN(stateData, ":", 2)
	if len(stateSlice) == 1 {
		return State{
			State: stateSlice[0],
		}, nil
	}

	if len(stateSlice) == 2 {
		return State{
			State:        stateSlice[0],
			StateContext: stateSlice[1],
		}, nil
	}

	return State{}, errorz.InvalidState
}

func (s *Storage) Set(userID int64, state string, stateContext string, expiration time.Duration) {
	s.redis.Set(context.Background(), fmt.Sprintf("%d", userID), fmt.Sprintf("%s:%s", state, stateContext), expiration)
}

func (s *Storage) Clear(userID int64) {
	s.redis.Del(context.Background(), fmt.Sprintf("%d", userID))
}
