package start

import (
	"context"
	"errors"

	"github.com/zenpost/planner-bot/cmd/bot"
	"github.com/zenpost/planner-bot/internal/adapters/controller/telegram/handlers/menu"
	"github.com/zenpost/planner-bot/internal/adapters/database/postgres"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/drafts"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/states"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/internal/domain/utils/location"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/layout"
)

type Handler struct {
	layout *layout.Layout
	logger *types.Logger

	userService   *service.UserService
	subscriptions *service.SubscriptionService
	statesStorage *states.Storage
	draftsStorage *drafts.Storage
	menuHandler   *menu.Handler
}

func New(b *bot.Bot) *Handler {
	userStorage := postgres.NewUserStorage(b.DB)

	return &Handler{
		layout:        b.Layout,
		logger:        b.Logger,
		userService:   service.NewUserService(userStorage),
		subscriptions: b.Subscriptions,
		statesStorage: b.Redis.States,
		draftsStorage: b.Redis.Drafts,
		menuHandler:   menu.New(b),
	}
}

// Start registers the user on first contact and resolves their plan: new
// users land with an active trial, locked out users see the plan catalogue
// instead of the menu.
func (h Handler) Start(c tele.Context) error {
	h.logger.Infof("(user: %d) /start", c.Sender().ID)

	h.statesStorage.Clear(c.Sender().ID)
	h.draftsStorage.Clear(c.Sender().ID)

	_, err := h.userService.Touch(context.Background(), entity.User{
		ID:        c.Sender().ID,
		Username:  c.Sender().Username,
		FirstName: c.Sender().FirstName,
	})
	if err != nil {
		h.logger.Errorf("(user: %d) error while saving user: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "core:hide"),
		)
	}

	sub, err := h.subscriptions.Resolve(context.Background(), c.Sender().ID)
	if err != nil {
		if errors.Is(err, errorz.SubscriptionExpired) {
			return c.Send(
				h.layout.Text(c, "subscription_expired"),
				h.layout.Markup(c, "subscriptionExpired:menu"),
			)
		}
		h.logger.Errorf("(user: %d) error while resolving subscription: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "core:hide"),
		)
	}

	plan, err := h.subscriptions.Plan(context.Background(), sub)
	if err != nil {
		h.logger.Errorf("(user: %d) error while resolving tariff %s: %v", c.Sender().ID, sub.TariffKey, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "core:hide"),
		)
	}

	expires := ""
	if sub.ExpiresAt != nil {
		expires = sub.ExpiresAt.In(location.Location()).Format("02.01.2006 15:04")
	}
	_ = c.Send(h.layout.Text(c, "start_text", struct {
		Name      string
		Tariff    string
		Trial     bool
		ExpiresAt string
	}{
		Name:      c.Sender().FirstName,
		Tariff:    plan.Name,
		Trial:     sub.IsTrial,
		ExpiresAt: expires,
	}))

	return h.menuHandler.SendMenu(c)
}
