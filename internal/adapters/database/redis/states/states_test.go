package states

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStorage(t *testing.T) *Storage {
	t.Helper()

	mr := miniredis.RunT(t)
	return NewStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestStorage_SetAndGet(t *testing.T) {
	storage := setupStorage(t)

	storage.Set(1, "awaiting_content", "", time.Hour)

	state, err := storage.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "awaiting_content", state.State)
	assert.Empty(t, state.StateContext)
}

func TestStorage_ContextSurvivesColons(t *testing.T) {
	storage := setupStorage(t)

	storage.Set(1, "broadcast_confirm", "text with: colons: inside", time.Hour)

	state, err := storage.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "broadcast_confirm", state.State)
	assert.Equal(t, "text with: colons: inside", state.StateContext)
}

func TestStorage_MissingIsZero(t *testing.T) {
	storage := setupStorage(t)

	state, err := storage.Get(42)
	require.NoError(t, err)
	assert.Empty(t, state.State)
}

func TestStorage_Clear(t *testing.T) {
	storage := setupStorage(t)

	storage.Set(1, "awaiting_content", "", time.Hour)
	storage.Clear(1)

	state, err := storage.Get(1)
	require.NoError(t, err)
	assert.Empty(t, state.State)
}
