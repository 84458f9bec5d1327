package user

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/zenpost/planner-bot/internal/adapters/database/redis/drafts"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/internal/domain/utils"
	"github.com/zenpost/planner-bot/internal/domain/utils/location"
	"github.com/zenpost/planner-bot/internal/domain/utils/validator"
	tele "gopkg.in/telebot.v3"
)

// composerTTL bounds a composing session: an abandoned draft evaporates on
// its own.
const composerTTL = time.Hour

// timeOffsets are the quick-pick delays of the time menu, in minutes.
var timeOffsets = []struct {
	Minutes int
	Label   string
}{
	{15, "Через 15 минут"},
	{30, "Через 30 минут"},
	{60, "Через час"},
	{180, "Через 3 часа"},
	{360, "Через 6 часов"},
	{720, "Через 12 часов"},
	{1440, "Через сутки"},
}

// newPost opens the composer. Admission is checked up front: a locked out
// user sees the plan catalogue, an exhausted quota a limit notice.
func (h Handler) newPost(c tele.Context) error {
	h.logger.Infof("(user: %d) new post request", c.Sender().ID)

	if !h.subscriptions.CanSchedulePost(context.Background(), c.Sender().ID) {
		_, err := h.subscriptions.Resolve(context.Background(), c.Sender().ID)
		if errors.Is(err, errorz.SubscriptionExpired) {
			return c.Edit(
				h.layout.Text(c, "subscription_expired"),
				h.layout.Markup(c, "subscriptionExpired:menu"),
			)
		}
		return c.Edit(
			h.layout.Text(c, "daily_limit_reached"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	channels, err := h.channelService.GetByOwner(context.Background(), c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting channels: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	if len(channels) == 0 {
		return c.Edit(
			h.layout.Text(c, "no_channels"),
			h.layout.Markup(c, "user:noChannels"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, channel := range channels {
		rows = append(rows, markup.Row(*h.layout.Button(c, "user:compose:channel", struct {
			ID   uint
			Name string
		}{
			ID:   channel.ID,
			Name: channel.DisplayName,
		})))
	}
	rows = append(rows, markup.Row(*h.layout.Button(c, "mainMenu:back")))
	markup.Inline(rows...)

	return c.Edit(
		h.layout.Text(c, "pick_channel"),
		markup,
	)
}

func (h Handler) pickChannel(c tele.Context) error {
	channelID, err := strconv.ParseUint(c.Callback().Data, 10, 32)
	if err != nil {
		return errorz.InvalidCallbackData
	}

	channel, err := h.channelService.Get(context.Background(), uint(channelID))
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting channel: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	if channel.OwnerID != c.Sender().ID {
		return errorz.Forbidden
	}

	if err = h.draftsStorage.Set(c.Sender().ID, drafts.Draft{ChannelID: channel.ID}, composerTTL); err != nil {
		h.logger.Errorf("(user: %d) error while saving draft: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	h.statesStorage.Set(c.Sender().ID, stateAwaitingContent, "", composerTTL)

	h.logger.Infof("(user: %d) composing post for channel %d", c.Sender().ID, channel.ID)
	return c.Edit(
		h.layout.Text(c, "input_content", channel),
		h.layout.Markup(c, "mainMenu:back"),
	)
}

// onContent consumes the message that becomes the post body. Only the
// supported kinds are accepted; everything else keeps the state and asks
// again.
func (h Handler) onContent(c tele.Context) error {
	kind, payload, caption, ok := utils.ExtractContent(c.Message())
	if !ok {
		return c.Send(
			h.layout.Text(c, "unsupported_content"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	draft, err := h.draftsStorage.Get(c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting draft: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	if draft.ChannelID == 0 {
		// The draft expired while the user was typing.
		h.statesStorage.Clear(c.Sender().ID)
		return c.Send(
			h.layout.Text(c, "compose_expired"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	draft.Kind = string(kind)
	draft.Payload = payload
	draft.Caption = caption
	if err = h.draftsStorage.Set(c.Sender().ID, draft, composerTTL); err != nil {
		h.logger.Errorf("(user: %d) error while saving draft: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	h.statesStorage.Clear(c.Sender().ID)

	return c.Send(
		h.layout.Text(c, "pick_time"),
		h.timeMenu(c),
	)
}

func (h Handler) timeMenu(c tele.Context) *tele.ReplyMarkup {
	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, offset := range timeOffsets {
		rows = append(rows, markup.Row(*h.layout.Button(c, "user:compose:offset", offset)))
	}
	rows = append(rows,
		markup.Row(*h.layout.Button(c, "user:compose:now")),
		markup.Row(*h.layout.Button(c, "user:compose:custom")),
		markup.Row(*h.layout.Button(c, "mainMenu:back")),
	)
	markup.Inline(rows...)
	return markup
}

func (h Handler) scheduleOffset(c tele.Context) error {
	minutes, err := strconv.Atoi(c.Callback().Data)
	if err != nil {
		return errorz.InvalidCallbackData
	}

	fireAt := time.Now().In(location.Location()).Add(time.Duration(minutes) * time.Minute)
	return h.finishCompose(c, fireAt, false)
}

func (h Handler) scheduleNow(c tele.Context) error {
	return h.finishCompose(c, time.Now().In(location.Location()), false)
}

func (h Handler) customTime(c tele.Context) error {
	h.statesStorage.Set(c.Sender().ID, stateAwaitingCustomTime, "", composerTTL)
	return c.Edit(
		h.layout.Text(c, "input_custom_time", validator.CustomTimeLayout),
		h.layout.Markup(c, "mainMenu:back"),
	)
}

// onCustomTime parses a free-text fire time. Rejected input keeps the state,
// so the user can simply send a corrected value.
func (h Handler) onCustomTime(c tele.Context) error {
	fireAt, ok := validator.ParseCustomTime(utils.GetMessageText(c.Message()), location.Location())
	if !ok {
		return c.Send(
			h.layout.Text(c, "invalid_time_format", validator.CustomTimeLayout),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	err := h.finishCompose(c, fireAt, true)
	switch {
	case errors.Is(err, errorz.TimeInPast):
		return c.Send(
			h.layout.Text(c, "time_in_past"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	case errors.Is(err, errorz.LeadTimeTooSoon):
		return c.Send(
			h.layout.Text(c, "time_too_soon"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	return err
}

// finishCompose turns the draft into a scheduled post. The daily quota is
// rechecked here: composing is slow and the quota may have filled meanwhile.
func (h Handler) finishCompose(c tele.Context, fireAt time.Time, fromFreeText bool) error {
	draft, err := h.draftsStorage.Get(c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting draft: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}
	if !draft.HasContent() {
		h.statesStorage.Clear(c.Sender().ID)
		return c.Send(
			h.layout.Text(c, "compose_expired"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	if !h.subscriptions.CanSchedulePost(context.Background(), c.Sender().ID) {
		h.statesStorage.Clear(c.Sender().ID)
		h.draftsStorage.Clear(c.Sender().ID)
		return c.Send(
			h.layout.Text(c, "daily_limit_reached"),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	post, err := h.posts.Schedule(context.Background(), service.ScheduleInput{
		OwnerID:      c.Sender().ID,
		ChannelID:    draft.ChannelID,
		Kind:         entity.ContentKind(draft.Kind),
		Payload:      draft.Payload,
		Caption:      draft.Caption,
		FireAt:       fireAt,
		FromFreeText: fromFreeText,
	})
	if err != nil {
		if errors.Is(err, errorz.TimeInPast) || errors.Is(err, errorz.LeadTimeTooSoon) {
			return err
		}
		h.logger.Errorf("(user: %d) error while scheduling post: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	if err = h.subscriptions.RecordPostCreated(context.Background(), c.Sender().ID); err != nil {
		h.logger.Errorf("(user: %d) error while charging daily quota: %v", c.Sender().ID, err)
	}

	h.statesStorage.Clear(c.Sender().ID)
	h.draftsStorage.Clear(c.Sender().ID)

	channel, err := h.channelService.Get(context.Background(), draft.ChannelID)
	channelName := ""
	if err == nil {
		channelName = channel.DisplayName
	}

	return c.Send(
		h.layout.Text(c, "post_scheduled", struct {
			Channel string
			FireAt  string
		}{
			Channel: channelName,
			FireAt:  post.FireAt.In(location.Location()).Format("02.01.2006 15:04"),
		}),
		h.layout.Markup(c, "mainMenu:back"),
	)
}
