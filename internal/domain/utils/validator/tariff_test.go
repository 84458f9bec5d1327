package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenpost/planner-bot/internal/domain/entity"
)

func TestTariffLimit(t *testing.T) {
	limit, ok := TariffLimit("20")
	require.True(t, ok)
	assert.Equal(t, entity.LimitOf(20), limit)

	limit, ok = TariffLimit("inf")
	require.True(t, ok)
	assert.True(t, limit.Unlimited)

	limit, ok = TariffLimit(" Unlim ")
	require.True(t, ok)
	assert.True(t, limit.Unlimited)

	_, ok = TariffLimit("-1")
	assert.False(t, ok)
	_, ok = TariffLimit("many")
	assert.False(t, ok)
}

func TestTariffKey(t *testing.T) {
	key, ok := TariffKey(" Business-2 ")
	require.True(t, ok)
	assert.Equal(t, "business-2", key)

	_, ok = TariffKey("")
	assert.False(t, ok)
	_, ok = TariffKey("тариф")
	assert.False(t, ok)
	_, ok = TariffKey("has space")
	assert.False(t, ok)
	_, ok = TariffKey("waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long")
	assert.False(t, ok)
}

func TestPositiveInt(t *testing.T) {
	n, ok := PositiveInt(" 30 ")
	require.True(t, ok)
	assert.Equal(t, 30, n)

	_, ok = PositiveInt("0")
	assert.False(t, ok)
	_, ok = PositiveInt("-5")
	assert.False(t, ok)
	_, ok = PositiveInt("abc")
	assert.False(t, ok)
}

func TestTelegramID(t *testing.T) {
	id, ok := TelegramID("-1001234567890")
	require.True(t, ok)
	assert.Equal(t, int64(-1001234567890), id)

	_, ok = TelegramID("0")
	assert.False(t, ok)
	_, ok = TelegramID("not-an-id")
	assert.False(t, ok)
}
