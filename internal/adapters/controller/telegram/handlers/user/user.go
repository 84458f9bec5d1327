package user

import (
	"context"

	"github.com/nlypage/intele"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/layout"

	"github.com/zenpost/planner-bot/cmd/bot"
	"github.com/zenpost/planner-bot/internal/adapters/database/postgres"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/drafts"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/states"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/pkg/logger/types"
)

// Composer states. While one of these is set, incoming messages belong to the
// post being composed instead of the generic input manager.
const (
	stateAwaitingContent    = "awaiting_content"
	stateAwaitingCustomTime = "awaiting_custom_time"
)

type channelService interface {
	Add(ctx context.Context, ownerID int64, telegramID, displayName string) (*entity.Channel, error)
	Get(ctx context.Context, id uint) (*entity.Channel, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]entity.Channel, error)
	Remove(ctx context.Context, id uint, ownerID int64) error
}

type Handler struct {
	layout *layout.Layout
	logger *types.Logger
	input  *intele.InputManager

	channelService channelService
	posts          *service.PostService
	subscriptions  *service.SubscriptionService
	tariffs        *service.TariffService
	gate           *service.GateService

	statesStorage *states.Storage
	draftsStorage *drafts.Storage
}

func New(b *bot.Bot) *Handler {
	channelStorage := postgres.NewChannelStorage(b.DB)

	return &Handler{
		layout:         b.Layout,
		logger:         b.Logger,
		input:          b.Input,
		channelService: service.NewChannelService(channelStorage),
		posts:          b.Posts,
		subscriptions:  b.Subscriptions,
		tariffs:        b.Tariffs,
		gate:           b.Gate,
		statesStorage:  b.Redis.States,
		draftsStorage:  b.Redis.Drafts,
	}
}

func (h Handler) Hide(c tele.Context) error {
	return c.Delete()
}

// OnInput routes plain messages: an active composer state consumes them,
// everything else goes to the input manager serving the request/response
// loops.
func (h Handler) OnInput(c tele.Context) error {
	state, err := h.statesStorage.Get(c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting state: %v", c.Sender().ID, err)
		return h.input.Handler()(c)
	}

	switch state.State {
	case stateAwaitingContent:
		return h.onContent(c)
	case stateAwaitingCustomTime:
		return h.onCustomTime(c)
	}
	return h.input.Handler()(c)
}

func (h Handler) UserSetup(group *tele.Group) {
	group.Handle(h.layout.Callback("core:hide"), h.Hide)

	group.Handle(h.layout.Callback("user:channels"), h.channelsList)
	group.Handle(h.layout.Callback("user:channels:add"), h.addChannel)
	group.Handle(h.layout.Callback("user:channels:channel"), h.channelMenu)
	group.Handle(h.layout.Callback("user:channels:delete"), h.deleteChannel)

	group.Handle(h.layout.Callback("user:new_post"), h.newPost)
	group.Handle(h.layout.Callback("user:compose:channel"), h.pickChannel)
	group.Handle(h.layout.Callback("user:compose:offset"), h.scheduleOffset)
	group.Handle(h.layout.Callback("user:compose:now"), h.scheduleNow)
	group.Handle(h.layout.Callback("user:compose:custom"), h.customTime)

	group.Handle(h.layout.Callback("user:posts"), h.postsList)
	group.Handle(h.layout.Callback("user:posts:post"), h.postMenu)
	group.Handle(h.layout.Callback("user:posts:cancel"), h.cancelPost)

	group.Handle(h.layout.Callback("user:subscription"), h.subscription)
	group.Handle(h.layout.Callback("user:tariffs"), h.tariffsList)
	group.Handle(h.layout.Callback("user:tariffs:tariff"), h.tariffMenu)
	group.Handle(h.layout.Callback("user:tariffs:buy"), h.buyTariff)
	group.Handle(h.layout.Callback("user:tariffs:check"), h.checkMembership)
}
