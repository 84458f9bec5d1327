package drafts

import (
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
	return NewStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestStorage_RoundTrip(t *testing.T) {
	storage, _ := setupStorage(t)

	draft := Draft{
		ChannelID: 7,
		Kind:      "photo",
		Payload:   "file-id",
		Caption:   "caption",
	}
	require.NoError(t, storage.Set(1, draft, time.Hour))

	got, err := storage.Get(1)
	require.NoError(t, err)
	assert.Equal(t, draft, got)
	assert.True(t, got.HasContent())
}

func TestStorage_MissingIsZero(t *testing.T) {
	storage, _ := setupStorage(t)

	draft, err := storage.Get(42)
	require.NoError(t, err)
	assert.Zero(t, draft)
	assert.False(t, draft.HasContent())
}

func TestStorage_ExpiresWithSession(t *testing.T) {
	storage, mr := setupStorage(t)

	require.NoError(t, storage.Set(1, Draft{ChannelID: 7}, time.Hour))
	mr.FastForward(2 * time.Hour)

	draft, err := storage.Get(1)
	require.NoError(t, err)
	assert.False(t, draft.HasContent())
}
