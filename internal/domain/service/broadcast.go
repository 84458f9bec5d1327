package service

import (
	"context"
	"strings"

	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/layout"
)

type broadcastUserStorage interface {
	GetAll(ctx context.Context) ([]entity.User, error)
}

// BroadcastService delivers an admin message to every known user and forwards
// error-level logs to the admin channel.
type BroadcastService struct {
	userStorage broadcastUserStorage

	bot    *tele.Bot
	layout *layout.Layout
	logger *types.Logger
}

func NewBroadcastService(bot *tele.Bot, layout *layout.Layout, logger *types.Logger, userStorage broadcastUserStorage) *BroadcastService {
	return &BroadcastService{
		userStorage: userStorage,
		bot:         bot,
		layout:      layout,
		logger:      logger,
	}
}

// Broadcast sends the given content to all known users. Individual failures
// (blocked bot, deleted account) are counted and logged, never abort the
// batch.
func (s *BroadcastService) Broadcast(ctx context.Context, what interface{}, opts ...interface{}) (sent int, failed int, err error) {
	users, err := s.userStorage.GetAll(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, user := range users {
		chat, errGetChat := s.bot.ChatByID(user.ID)
		if errGetChat != nil {
			failed++
			s.logger.Warnf("broadcast: failed to get chat for user %d: %v", user.ID, errGetChat)
			continue
		}
		if _, errSend := s.bot.Send(chat, what, opts...); errSend != nil {
			failed++
			s.logger.Warnf("broadcast: failed to send to user %d: %v", user.ID, errSend)
			continue
		}
		sent++
	}

	s.logger.Infof("broadcast finished: %d sent, %d failed", sent, failed)
	return sent, failed, nil
}

// LogHook returns a log hook that forwards entries at or above the given
// level to the specified channel.
func (s *BroadcastService) LogHook(channelID int64, locale string, level zapcore.Level) (types.LogHook, error) {
	chat, err := s.bot.ChatByID(channelID)
	if err != nil {
		return nil, err
	}
	return func(log types.Log) {
		if log.Level >= level {
			_, errSend := s.bot.Send(chat, s.layout.TextLocale(locale, "log", log))
			if errSend != nil && !strings.Contains(log.Message, "failed to send log to channel") {
				s.logger.Errorf("failed to send log to channel %d: %v\n", channelID, errSend)
			}
		}
	}, nil
}
