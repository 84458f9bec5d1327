package admin

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/nlypage/intele"
	"github.com/nlypage/intele/collector"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/layout"

	"github.com/zenpost/planner-bot/cmd/bot"
	"github.com/zenpost/planner-bot/internal/adapters/controller/telegram/sender"
	"github.com/zenpost/planner-bot/internal/adapters/database/postgres"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis/states"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/internal/domain/utils"
	"github.com/zenpost/planner-bot/internal/domain/utils/validator"
	"github.com/zenpost/planner-bot/pkg/logger/types"
)

const stateBroadcastConfirm = "broadcast_confirm"

// broadcastContent is the pending broadcast parked in the state context
// between the input and the confirmation tap, same shape as a composer draft.
type broadcastContent struct {
	Kind    entity.ContentKind `json:"kind"`
	Payload string             `json:"payload"`
	Caption string             `json:"caption"`
}

func (b broadcastContent) preview() string {
	if b.Kind == entity.ContentText {
		return b.Payload
	}
	return b.Caption
}

type adminUserService interface {
	Get(ctx context.Context, userID int64) (*entity.User, error)
	Count(ctx context.Context) (int64, error)
	Ban(ctx context.Context, userID int64) (*entity.User, error)
}

type Handler struct {
	layout *layout.Layout
	logger *types.Logger
	input  *intele.InputManager

	userService   adminUserService
	tariffs       *service.TariffService
	subscriptions *service.SubscriptionService
	broadcast     *service.BroadcastService

	statesStorage *states.Storage
}

func New(b *bot.Bot) *Handler {
	userStorage := postgres.NewUserStorage(b.DB)

	return &Handler{
		layout:        b.Layout,
		logger:        b.Logger,
		input:         b.Input,
		userService:   service.NewUserService(userStorage),
		tariffs:       b.Tariffs,
		subscriptions: b.Subscriptions,
		broadcast:     service.NewBroadcastService(b.Bot, b.Layout, b.Logger, userStorage),
		statesStorage: b.Redis.States,
	}
}

func (h Handler) AdminSetup(group *tele.Group) {
	group.Handle(h.layout.Callback("mainMenu:admin_menu"), h.adminMenu)
	group.Handle(h.layout.Callback("admin:back_to_menu"), h.adminMenu)

	group.Handle(h.layout.Callback("admin:broadcast"), h.broadcastInput)
	group.Handle(h.layout.Callback("admin:broadcast:confirm"), h.confirmBroadcast)
	group.Handle(h.layout.Callback("admin:broadcast:cancel"), h.cancelBroadcast)

	group.Handle(h.layout.Callback("admin:tariffs"), h.tariffsList)
	group.Handle(h.layout.Callback("admin:tariffs:tariff"), h.tariffMenu)
	group.Handle(h.layout.Callback("admin:tariffs:add"), h.addTariff)
	group.Handle(h.layout.Callback("admin:tariffs:edit"), h.editTariff)
	group.Handle(h.layout.Callback("admin:tariffs:delete"), h.deleteTariff)

	group.Handle(h.layout.Callback("admin:grant"), h.grant)
	group.Handle(h.layout.Callback("admin:grant:tariff"), h.grantTariff)
	group.Handle(h.layout.Callback("admin:revoke"), h.revoke)
	group.Handle(h.layout.Callback("admin:ban"), h.ban)
}

func (h Handler) adminMenu(c tele.Context) error {
	h.logger.Infof("(user: %d) edit admin menu", c.Sender().ID)

	usersCount, err := h.userService.Count(context.Background())
	if err != nil {
		h.logger.Errorf("(user: %d) error while counting users: %v", c.Sender().ID, err)
	}

	return c.Edit(
		h.layout.Text(c, "admin_menu_text", struct {
			Username   string
			UsersCount int64
		}{
			Username:   c.Sender().Username,
			UsersCount: usersCount,
		}),
		h.layout.Markup(c, "admin:menu"),
	)
}

// inputUserID runs the shared read-a-user-id loop of the admin flows.
// The returned bool is false when the admin backed out.
func (h Handler) inputUserID(c tele.Context, mustExist bool) (int64, bool) {
	inputCollector := collector.New()
	_ = c.Edit(
		h.layout.Text(c, "input_user_id"),
		h.layout.Markup(c, "admin:backToMenu"),
	)
	inputCollector.Collect(c.Message())

	for {
		message, canceled, errGet := h.input.Get(context.Background(), c.Sender().ID, 0)
		if message != nil {
			inputCollector.Collect(message)
		}
		switch {
		case canceled:
			_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true, ExcludeLast: true})
			return 0, false
		case errGet != nil:
			h.logger.Errorf("(user: %d) error while input user id: %v", c.Sender().ID, errGet)
			_ = inputCollector.Send(c,
				h.layout.Text(c, "input_error", h.layout.Text(c, "input_user_id")),
				h.layout.Markup(c, "admin:backToMenu"),
			)
		default:
			userID, ok := validator.TelegramID(message.Text)
			if !ok || userID < 0 {
				_ = inputCollector.Send(c,
					h.layout.Text(c, "invalid_user_id"),
					h.layout.Markup(c, "admin:backToMenu"),
				)
				break
			}
			if mustExist {
				if _, errUser := h.userService.Get(context.Background(), userID); errUser != nil {
					_ = inputCollector.Send(c,
						h.layout.Text(c, "user_not_found", userID),
						h.layout.Markup(c, "admin:backToMenu"),
					)
					break
				}
			}
			_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true})
			return userID, true
		}
	}
}

func (h Handler) grant(c tele.Context) error {
	h.logger.Infof("(user: %d) grant subscription request", c.Sender().ID)

	userID, ok := h.inputUserID(c, true)
	if !ok {
		return nil
	}

	tariffs, err := h.tariffs.GetAll(context.Background())
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting tariffs: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, tariff := range tariffs {
		rows = append(rows, markup.Row(*h.layout.Button(c, "admin:grant:tariff", struct {
			UserID int64
			Key    string
			Name   string
		}{
			UserID: userID,
			Key:    tariff.Key,
			Name:   tariff.Name,
		})))
	}
	rows = append(rows, markup.Row(*h.layout.Button(c, "admin:back_to_menu")))
	markup.Inline(rows...)

	return c.Send(
		h.layout.Text(c, "pick_grant_tariff", userID),
		markup,
	)
}

func (h Handler) grantTariff(c tele.Context) error {
	callbackData := strings.Split(c.Callback().Data, " ")
	if len(callbackData) != 2 {
		return errorz.InvalidCallbackData
	}
	userID, err := strconv.ParseInt(callbackData[0], 10, 64)
	if err != nil {
		return errorz.InvalidCallbackData
	}
	tariffKey := callbackData[1]

	sub, err := h.subscriptions.Grant(context.Background(), userID, tariffKey)
	if err != nil {
		h.logger.Errorf("(user: %d) error while granting tariff %s to %d: %v", c.Sender().ID, tariffKey, userID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	expires := "-"
	if sub.ExpiresAt != nil {
		expires = sub.ExpiresAt.Format("02.01.2006 15:04")
	}
	h.logger.Infof("(user: %d) granted tariff %s to %d", c.Sender().ID, tariffKey, userID)
	return c.Edit(
		h.layout.Text(c, "subscription_granted", struct {
			UserID    int64
			Tariff    string
			ExpiresAt string
		}{
			UserID:    userID,
			Tariff:    tariffKey,
			ExpiresAt: expires,
		}),
		h.layout.Markup(c, "admin:backToMenu"),
	)
}

func (h Handler) revoke(c tele.Context) error {
	h.logger.Infof("(user: %d) revoke subscription request", c.Sender().ID)

	userID, ok := h.inputUserID(c, false)
	if !ok {
		return nil
	}

	if err := h.subscriptions.Revoke(context.Background(), userID); err != nil {
		h.logger.Errorf("(user: %d) error while revoking subscription of %d: %v", c.Sender().ID, userID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	h.logger.Infof("(user: %d) revoked subscription of %d", c.Sender().ID, userID)
	return c.Send(
		h.layout.Text(c, "subscription_revoked", userID),
		h.layout.Markup(c, "admin:backToMenu"),
	)
}

func (h Handler) ban(c tele.Context) error {
	h.logger.Infof("(user: %d) ban request", c.Sender().ID)

	userID, ok := h.inputUserID(c, true)
	if !ok {
		return nil
	}
	if utils.IsAdmin(userID) {
		return c.Send(
			h.layout.Text(c, "cannot_ban_admin"),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	user, err := h.userService.Ban(context.Background(), userID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while banning %d: %v", c.Sender().ID, userID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	key := "user_unbanned"
	if user.Banned {
		key = "user_banned"
	}
	h.logger.Infof("(user: %d) user %d banned=%t", c.Sender().ID, userID, user.Banned)
	return c.Send(
		h.layout.Text(c, key, userID),
		h.layout.Markup(c, "admin:backToMenu"),
	)
}

func (h Handler) broadcastInput(c tele.Context) error {
	h.logger.Infof("(user: %d) broadcast request", c.Sender().ID)

	inputCollector := collector.New()
	_ = c.Edit(
		h.layout.Text(c, "input_broadcast"),
		h.layout.Markup(c, "admin:backToMenu"),
	)
	inputCollector.Collect(c.Message())

	var (
		content broadcastContent
		done    bool
	)
	for {
		message, canceled, errGet := h.input.Get(context.Background(), c.Sender().ID, 0)
		if message != nil {
			inputCollector.Collect(message)
		}
		switch {
		case canceled:
			_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true, ExcludeLast: true})
			return nil
		case errGet != nil:
			h.logger.Errorf("(user: %d) error while input broadcast: %v", c.Sender().ID, errGet)
			_ = inputCollector.Send(c,
				h.layout.Text(c, "input_error", h.layout.Text(c, "input_broadcast")),
				h.layout.Markup(c, "admin:backToMenu"),
			)
		default:
			kind, payload, caption, ok := utils.ExtractContent(message)
			if !ok {
				_ = inputCollector.Send(c,
					h.layout.Text(c, "unsupported_content"),
					h.layout.Markup(c, "admin:backToMenu"),
				)
				break
			}
			content = broadcastContent{Kind: kind, Payload: payload, Caption: caption}
			_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true})
			done = true
		}
		if done {
			break
		}
	}

	packed, err := json.Marshal(content)
	if err != nil {
		h.logger.Errorf("(user: %d) error while packing broadcast: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	h.statesStorage.Set(c.Sender().ID, stateBroadcastConfirm, string(packed), time.Hour)
	return c.Send(
		h.layout.Text(c, "confirm_broadcast", content.preview()),
		h.layout.Markup(c, "admin:broadcast:menu"),
	)
}

func (h Handler) confirmBroadcast(c tele.Context) error {
	state, err := h.statesStorage.Get(c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting state: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}
	if state.State != stateBroadcastConfirm || state.StateContext == "" {
		return errorz.InvalidState
	}
	var content broadcastContent
	if err = json.Unmarshal([]byte(state.StateContext), &content); err != nil {
		h.logger.Errorf("(user: %d) error while unpacking broadcast: %v", c.Sender().ID, err)
		return errorz.InvalidState
	}
	h.statesStorage.Clear(c.Sender().ID)

	_ = c.Edit(h.layout.Text(c, "broadcast_started"))
	sent, failed, err := h.broadcast.Broadcast(context.Background(), sender.Sendable(content.Kind, content.Payload, content.Caption))
	if err != nil {
		h.logger.Errorf("(user: %d) error while broadcasting: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	h.logger.Infof("(user: %d) broadcast finished: %d sent, %d failed", c.Sender().ID, sent, failed)
	return c.Send(
		h.layout.Text(c, "broadcast_done", struct {
			Sent   int
			Failed int
		}{
			Sent:   sent,
			Failed: failed,
		}),
		h.layout.Markup(c, "admin:backToMenu"),
	)
}

func (h Handler) cancelBroadcast(c tele.Context) error {
	h.statesStorage.Clear(c.Sender().ID)
	return h.adminMenu(c)
}
