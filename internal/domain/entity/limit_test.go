package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit_Allows(t *testing.T) {
	limit := LimitOf(3)

	assert.True(t, limit.Allows(0))
	assert.True(t, limit.Allows(2))
	assert.False(t, limit.Allows(3))
	assert.False(t, limit.Allows(100))
}

func TestLimit_Unlimited(t *testing.T) {
	limit := Unlimited()

	assert.True(t, limit.Allows(0))
	assert.True(t, limit.Allows(1<<40))
	assert.Equal(t, "∞", limit.String())
}

func TestLimit_ZeroForbidsEverything(t *testing.T) {
	limit := LimitOf(0)

	assert.False(t, limit.Allows(0))
}

func TestLimit_ScanRoundTrip(t *testing.T) {
	for _, limit := range []Limit{LimitOf(0), LimitOf(42), Unlimited()} {
		value, err := limit.Value()
		require.NoError(t, err)

		var scanned Limit
		require.NoError(t, scanned.Scan(value))
		assert.Equal(t, limit, scanned)
	}
}

func TestLimit_ScanNegativeIsUnlimited(t *testing.T) {
	var limit Limit
	require.NoError(t, limit.Scan(int64(-1)))
	assert.True(t, limit.Unlimited)
}
