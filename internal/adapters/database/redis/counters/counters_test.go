package counters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStorage(client), mr
}

func TestStorage_GetMissingIsZero(t *testing.T) {
	storage, _ := setupStorage(t)

	count, err := storage.Get(context.Background(), 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStorage_IncrAndGet(t *testing.T) {
	storage, _ := setupStorage(t)
	day := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	count, err := storage.Incr(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = storage.Incr(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = storage.Get(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStorage_DaysAreIndependent(t *testing.T) {
	storage, _ := setupStorage(t)
	today := time.Date(2026, 8, 25, 23, 59, 0, 0, time.UTC)
	tomorrow := today.Add(2 * time.Minute)

	_, err := storage.Incr(context.Background(), 1, today)
	require.NoError(t, err)

	count, err := storage.Get(context.Background(), 1, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "the next day starts from a fresh counter")
}

func TestStorage_UsersAreIndependent(t *testing.T) {
	storage, _ := setupStorage(t)
	day := time.Now()

	_, err := storage.Incr(context.Background(), 1, day)
	require.NoError(t, err)

	count, err := storage.Get(context.Background(), 2, day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStorage_CounterExpires(t *testing.T) {
	storage, mr := setupStorage(t)
	day := time.Now()

	_, err := storage.Incr(context.Background(), 1, day)
	require.NoError(t, err)

	mr.FastForward(49 * time.Hour)

	count, err := storage.Get(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
