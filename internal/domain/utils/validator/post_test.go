package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	parsed, ok := ParseCustomTime("27.11.2024-19.30", loc)
	require.True(t, ok)
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.November, parsed.Month())
	assert.Equal(t, 27, parsed.Day())
	assert.Equal(t, 19, parsed.Hour())
	assert.Equal(t, 30, parsed.Minute())
	assert.Equal(t, loc, parsed.Location())
}

func TestParseCustomTime_TrimsWhitespace(t *testing.T) {
	_, ok := ParseCustomTime("  27.11.2024-19.30 ", time.UTC)
	assert.True(t, ok)
}

func TestParseCustomTime_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"tomorrow",
		"27.11.2024 19:30",
		"2024-11-27T19:30",
		"32.01.2024-10.00",
	} {
		_, ok := ParseCustomTime(input, time.UTC)
		assert.False(t, ok, "input %q must be rejected", input)
	}
}

func TestChannelID(t *testing.T) {
	assert.True(t, ChannelID("@mychannel"))
	assert.True(t, ChannelID("-1001234567890"))

	assert.False(t, ChannelID("@"))
	assert.False(t, ChannelID("@bad name"))
	assert.False(t, ChannelID("mychannel"))
	assert.False(t, ChannelID("-100"))
	assert.False(t, ChannelID("12345"))
}
