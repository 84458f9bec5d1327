package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/counters"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/drafts"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/states"
)

// Client bundles the per-concern redis storages, one database index each.
type Client struct {
	States   *states.Storage
	Drafts   *drafts.Storage
	Counters *counters.Storage
}

type Options struct {
	Host     string
	Port     string
	Password string
}

func New(opts Options) (*Client, error) {
	stateStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       0,
	})
	if err := stateStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping states storage: %w", err)
	}

	draftStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       1,
	})
	if err := draftStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping drafts storage: %w", err)
	}

	counterStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       2,
	})
	if err := counterStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping counters storage: %w", err)
	}

	return &Client{
		States:   states.NewStorage(stateStorage),
		Drafts:   drafts.NewStorage(draftStorage),
		Counters: counters.NewStorage(counterStorage),
	}, nil
}
