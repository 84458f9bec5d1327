package utils

import (
	"slices"

	"github.com/spf13/viper"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	tele "gopkg.in/telebot.v3"
)

func IsAdmin(userID int64) bool {
	return slices.Contains(viper.GetIntSlice("bot.admin-ids"), int(userID))
}

// ExtractContent maps an incoming message to a post content item: the kind,
// the opaque payload (text or telegram file id) and the caption. Unsupported
// message types come back as ok=false.
func ExtractContent(msg *tele.Message) (kind entity.ContentKind, payload, caption string, ok bool) {
	switch {
	case msg.Photo != nil:
		return entity.ContentPhoto, msg.Photo.FileID, msg.Caption, true
	case msg.Video != nil:
		return entity.ContentVideo, msg.Video.FileID, msg.Caption, true
	case msg.Document != nil:
		return entity.ContentDocument, msg.Document.FileID, msg.Caption, true
	case msg.Text != "":
		return entity.ContentText, msg.Text, "", true
	default:
		return "", "", "", false
	}
}

func GetMessageText(msg *tele.Message) string {
	switch {
	case msg.Text != "":
		return msg.Text
	case msg.Caption != "":
		return msg.Caption
	default:
		return ""
	}
}
