package user

import (
	"context"
	"strconv"
	"strings"

	"github.com/nlypage/intele/collector"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/utils/validator"
	tele "gopkg.in/telebot.v3"
)

func (h Handler) channelsList(c tele.Context) error {
	h.logger.Infof("(user: %d) edit channels list", c.Sender().ID)

	channels, err := h.channelService.GetByOwner(context.Background(), c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting channels: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, channel := range channels {
		rows = append(rows, markup.Row(*h.layout.Button(c, "user:channels:channel", struct {
			ID   uint
			Name string
		}{
			ID:   channel.ID,
			Name: channel.DisplayName,
		})))
	}
	rows = append(rows,
		markup.Row(*h.layout.Button(c, "user:channels:add")),
		markup.Row(*h.layout.Button(c, "mainMenu:back")),
	)
	markup.Inline(rows...)

	return c.Edit(
		h.layout.Text(c, "channels_list", len(channels)),
		markup,
	)
}

func (h Handler) channelMenu(c tele.Context) error {
	channelID, err := strconv.ParseUint(c.Callback().Data, 10, 32)
	if err != nil {
		return errorz.InvalidCallbackData
	}

	channel, err := h.channelService.Get(context.Background(), uint(channelID))
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting channel: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToChannels"),
		)
	}
	if channel.OwnerID != c.Sender().ID {
		return errorz.Forbidden
	}

	return c.Edit(
		h.layout.Text(c, "channel_menu_text", channel),
		h.layout.Markup(c, "user:channel:menu", struct {
			ID uint
		}{
			ID: channel.ID,
		}),
	)
}

func (h Handler) deleteChannel(c tele.Context) error {
	channelID, err := strconv.ParseUint(c.Callback().Data, 10, 32)
	if err != nil {
		return errorz.InvalidCallbackData
	}

	h.logger.Infof("(user: %d) delete channel (channel_id=%d)", c.Sender().ID, channelID)
	if err = h.channelService.Remove(context.Background(), uint(channelID), c.Sender().ID); err != nil {
		h.logger.Errorf("(user: %d) error while deleting channel: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToChannels"),
		)
	}

	return c.Edit(
		h.layout.Text(c, "channel_deleted"),
		h.layout.Markup(c, "user:backToChannels"),
	)
}

// addChannel runs the register-a-channel loop: the plan must allow one more
// channel and the bot must be able to see the chat before anything is stored.
func (h Handler) addChannel(c tele.Context) error {
	h.logger.Infof("(user: %d) add channel request", c.Sender().ID)

	if !h.subscriptions.CanAddChannel(context.Background(), c.Sender().ID) {
		return c.Edit(
			h.layout.Text(c, "channel_limit_reached"),
			h.layout.Markup(c, "subscriptionExpired:menu"),
		)
	}

	inputCollector := collector.New()
	_ = c.Edit(
		h.layout.Text(c, "input_channel"),
		h.layout.Markup(c, "user:backToChannels"),
	)
	inputCollector.Collect(c.Message())

	var (
		channel *entity.Channel
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
			h.logger.Errorf("(user: %d) error while input channel: %v", c.Sender().ID, errGet)
			_ = inputCollector.Send(c,
				h.layout.Text(c, "input_error", h.layout.Text(c, "input_channel")),
				h.layout.Markup(c, "user:backToChannels"),
			)
		case !validator.ChannelID(message.Text):
			_ = inputCollector.Send(c,
				h.layout.Text(c, "invalid_channel"),
				h.layout.Markup(c, "user:backToChannels"),
			)
		default:
			reference := strings.TrimSpace(message.Text)

			chat, errChat := h.resolveChat(c, reference)
			if errChat != nil {
				h.logger.Warnf("(user: %d) channel %s is not accessible: %v", c.Sender().ID, reference, errChat)
				_ = inputCollector.Send(c,
					h.layout.Text(c, "channel_not_accessible"),
					h.layout.Markup(c, "user:backToChannels"),
				)
				break
			}

			existing, errList := h.channelService.GetByOwner(context.Background(), c.Sender().ID)
			if errList != nil {
				h.logger.Errorf("(user: %d) error while getting channels: %v", c.Sender().ID, errList)
				_ = inputCollector.Send(c,
					h.layout.Text(c, "technical_issues", errList.Error()),
					h.layout.Markup(c, "user:backToChannels"),
				)
				break
			}
			duplicate := false
			for _, ch := range existing {
				if ch.TelegramID == reference {
					duplicate = true
					break
				}
			}
			if duplicate {
				_ = inputCollector.Send(c,
					h.layout.Text(c, "channel_already_exists"),
					h.layout.Markup(c, "user:backToChannels"),
				)
				break
			}

			var errAdd error
			channel, errAdd = h.channelService.Add(context.Background(), c.Sender().ID, reference, chat.Title)
			if errAdd != nil {
				h.logger.Errorf("(user: %d) error while adding channel: %v", c.Sender().ID, errAdd)
				_ = inputCollector.Send(c,
					h.layout.Text(c, "technical_issues", errAdd.Error()),
					h.layout.Markup(c, "user:backToChannels"),
				)
				break
			}
			_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true})
			done = true
		}
		if done {
			break
		}
	}

	h.logger.Infof("(user: %d) channel added: %s", c.Sender().ID, channel.TelegramID)
	return c.Send(
		h.layout.Text(c, "channel_added", channel),
		h.layout.Markup(c, "user:backToChannels"),
	)
}

func (h Handler) resolveChat(c tele.Context, reference string) (*tele.Chat, error) {
	if strings.HasPrefix(reference, "@") {
		return c.Bot().ChatByUsername(reference)
	}
	id, err := strconv.ParseInt(reference, 10, 64)
	if err != nil {
		return nil, err
	}
	return c.Bot().ChatByID(id)
}
