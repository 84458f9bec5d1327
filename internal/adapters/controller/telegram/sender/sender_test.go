package sender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"github.com/zenpost/planner-bot/internal/domain/entity"
)

func TestSendable_MediaKeepsFileIDAndCaption(t *testing.T) {
	photo, ok := Sendable(entity.ContentPhoto, "file-1", "подпись").(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "file-1", photo.FileID)
	assert.Equal(t, "подпись", photo.Caption)

	video, ok := Sendable(entity.ContentVideo, "file-2", "").(*tele.Video)
	require.True(t, ok)
	assert.Equal(t, "file-2", video.FileID)

	document, ok := Sendable(entity.ContentDocument, "file-3", "отчёт").(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "file-3", document.FileID)
	assert.Equal(t, "отчёт", document.Caption)
}

func TestSendable_TextIsPlainString(t *testing.T) {
	what, ok := Sendable(entity.ContentText, "привет", "").(string)
	require.True(t, ok)
	assert.Equal(t, "привет", what)
}

func TestChannelRecipient(t *testing.T) {
	assert.Equal(t, "@channel", channelRecipient("@channel").Recipient())
	assert.Equal(t, "-1001234567890", channelRecipient("-1001234567890").Recipient())
}
