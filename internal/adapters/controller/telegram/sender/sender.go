package sender

import (
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	tele "gopkg.in/telebot.v3"
)

// channelRecipient lets a raw channel reference ("@name" or "-100…") be used
// as a telebot recipient without an extra chat lookup.
type channelRecipient string

func (r channelRecipient) Recipient() string {
	return string(r)
}

// Sender delivers due posts through the bot API.
type Sender struct {
	bot    *tele.Bot
	logger *types.Logger
}

func New(bot *tele.Bot, logger *types.Logger) *Sender {
	return &Sender{
		bot:    bot,
		logger: logger,
	}
}

// Sendable maps a content kind onto the outgoing telebot message object.
// Scheduled posts and admin broadcasts both go through it.
func Sendable(kind entity.ContentKind, payload, caption string) interface{} {
	switch kind {
	case entity.ContentPhoto:
		return &tele.Photo{File: tele.File{FileID: payload}, Caption: caption}
	case entity.ContentVideo:
		return &tele.Video{File: tele.File{FileID: payload}, Caption: caption}
	case entity.ContentDocument:
		return &tele.Document{File: tele.File{FileID: payload}, Caption: caption}
	default:
		return payload
	}
}

func (s *Sender) SendPost(post *entity.ScheduledPost) error {
	destination := channelRecipient(post.Channel.TelegramID)
	_, err := s.bot.Send(destination, Sendable(post.Kind, post.Payload, post.Caption))
	return err
}
