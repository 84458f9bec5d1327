package middlewares

import (
	"context"
	"errors"
	"strings"

	"github.com/nlypage/intele"
	"gorm.io/gorm"

	"github.com/zenpost/planner-bot/cmd/bot"
	"github.com/zenpost/planner-bot/internal/adapters/database/postgres"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/drafts"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/states"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/layout"
)

type userService interface {
	Get(ctx context.Context, userID int64) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) (*entity.User, error)
}

type Handler struct {
	bot           *tele.Bot
	layout        *layout.Layout
	logger        *types.Logger
	userService   userService
	statesStorage *states.Storage
	draftsStorage *drafts.Storage
	input         *intele.InputManager
}

func New(b *bot.Bot) *Handler {
	userStorage := postgres.NewUserStorage(b.DB)

	return &Handler{
		bot:           b.Bot,
		layout:        b.Layout,
		logger:        b.Logger,
		userService:   service.NewUserService(userStorage),
		statesStorage: b.Redis.States,
		draftsStorage: b.Redis.Drafts,
		input:         b.Input,
	}
}

func (h Handler) Authorized(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user, err := h.userService.Get(context.Background(), c.Sender().ID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				h.logger.Errorf("(user: %d) error while getting user from db: %v", c.Sender().ID, err)
				return c.Send(
					h.layout.Text(c, "technical_issues", err.Error()),
					h.layout.Markup(c, "core:hide"),
				)
			}
			return c.Send(
				h.layout.Text(c, "auth_required"),
				h.layout.Markup(c, "core:hide"),
			)
		}

		if c.Sender().Username != user.Username {
			h.logger.Infof("(user: %d) update username", c.Sender().ID)
			user.Username = c.Sender().Username
			_, err = h.userService.Update(context.Background(), user)
			if err != nil {
				return c.Send(
					h.layout.Text(c, "technical_issues", err.Error()),
					h.layout.Markup(c, "core:hide"),
				)
			}
		}

		if user.Banned {
			return c.Send(
				h.layout.Text(c, "banned"),
				h.layout.Markup(c, "core:hide"),
			)
		}

		return next(c)
	}
}

// ResetComposerOnBack drops the pending input and the half-built draft when
// the user navigates away: any back button, the main menu or a command.
func (h Handler) ResetComposerOnBack(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() != nil {
			if strings.Contains(c.Callback().Data, "back") || strings.Contains(c.Callback().Unique, "back") {
				h.input.Cancel(c.Sender().ID)
				h.statesStorage.Clear(c.Sender().ID)
				h.draftsStorage.Clear(c.Sender().ID)
			}
		}
		if c.Message() != nil {
			if strings.HasPrefix(c.Message().Text, "/") {
				h.input.Cancel(c.Sender().ID)
				h.statesStorage.Clear(c.Sender().ID)
				h.draftsStorage.Clear(c.Sender().ID)
			}
		}

		return next(c)
	}
}
