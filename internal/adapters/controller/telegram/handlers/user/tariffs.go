package user

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/spf13/viper"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/utils/location"
	"github.com/zenpost/planner-bot/pkg/qrcode"
	tele "gopkg.in/telebot.v3"
)

func (h Handler) subscription(c tele.Context) error {
	h.logger.Infof("(user: %d) edit subscription info", c.Sender().ID)

	sub, err := h.subscriptions.Resolve(context.Background(), c.Sender().ID)
	if err != nil {
		if errors.Is(err, errorz.SubscriptionExpired) {
			return c.Edit(
				h.layout.Text(c, "subscription_expired"),
				h.layout.Markup(c, "subscriptionExpired:menu"),
			)
		}
		h.logger.Errorf("(user: %d) error while resolving subscription: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	plan, err := h.subscriptions.Plan(context.Background(), sub)
	if err != nil {
		h.logger.Errorf("(user: %d) error while resolving tariff %s: %v", c.Sender().ID, sub.TariffKey, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	postsToday, err := h.subscriptions.PostsToday(context.Background(), c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while reading daily counter: %v", c.Sender().ID, err)
	}
	channels, err := h.channelService.GetByOwner(context.Background(), c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting channels: %v", c.Sender().ID, err)
	}

	expires := ""
	if sub.ExpiresAt != nil {
		expires = sub.ExpiresAt.In(location.Location()).Format("02.01.2006 15:04")
	}

	return c.Edit(
		h.layout.Text(c, "subscription_info", struct {
			Tariff        string
			Trial         bool
			ExpiresAt     string
			PostsToday    int64
			PostsLimit    string
			Channels      int
			ChannelsLimit string
		}{
			Tariff:        plan.Name,
			Trial:         sub.IsTrial,
			ExpiresAt:     expires,
			PostsToday:    postsToday,
			PostsLimit:    plan.PostsPerDay.String(),
			Channels:      len(channels),
			ChannelsLimit: plan.ChannelsLimit.String(),
		}),
		h.layout.Markup(c, "user:subscription:menu"),
	)
}

func (h Handler) tariffsList(c tele.Context) error {
	h.logger.Infof("(user: %d) edit tariffs list", c.Sender().ID)

	tariffs, err := h.tariffs.GetAll(context.Background())
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting tariffs: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, tariff := range tariffs {
		if tariff.Price == 0 {
			continue
		}
		rows = append(rows, markup.Row(*h.layout.Button(c, "user:tariffs:tariff", struct {
			Key   string
			Name  string
			Price int
		}{
			Key:   tariff.Key,
			Name:  tariff.Name,
			Price: tariff.Price,
		})))
	}
	rows = append(rows, markup.Row(*h.layout.Button(c, "mainMenu:back")))
	markup.Inline(rows...)

	return c.Edit(
		h.layout.Text(c, "tariffs_list"),
		markup,
	)
}

func (h Handler) tariffMenu(c tele.Context) error {
	tariff, err := h.tariffs.Get(context.Background(), c.Callback().Data)
	if err != nil {
		if errors.Is(err, errorz.TariffNotFound) {
			return errorz.InvalidCallbackData
		}
		h.logger.Errorf("(user: %d) error while getting tariff: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToTariffs"),
		)
	}

	return c.Edit(
		h.layout.Text(c, "tariff_details", struct {
			Name          string
			Price         int
			PostsPerDay   string
			ChannelsLimit string
			DurationDays  int
			Perks         string
		}{
			Name:          tariff.Name,
			Price:         tariff.Price,
			PostsPerDay:   tariff.PostsPerDay.String(),
			ChannelsLimit: tariff.ChannelsLimit.String(),
			DurationDays:  tariff.DurationDays,
			Perks:         strings.Join(tariff.Perks, "\n• "),
		}),
		h.layout.Markup(c, "user:tariff:menu", struct {
			Key string
		}{
			Key: tariff.Key,
		}),
	)
}

// buyTariff starts a purchase: a payment QR plus, for gated plans, a
// single-use invite into the gating channel. Activation happens in
// checkMembership once the user actually joined.
func (h Handler) buyTariff(c tele.Context) error {
	tariff, err := h.tariffs.Get(context.Background(), c.Callback().Data)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting tariff: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToTariffs"),
		)
	}

	h.logger.Infof("(user: %d) buy tariff %s request", c.Sender().ID, tariff.Key)

	if tariff.PaymentURL == "" || !tariff.Gated() {
		return c.Edit(
			h.layout.Text(c, "tariff_manual_only"),
			h.layout.Markup(c, "user:backToTariffs"),
		)
	}

	invite, err := h.gate.InviteLink(tariff)
	if err != nil {
		if errors.Is(err, errorz.BotAccess) {
			h.logger.Errorf("(user: %d) gating channel of %s unavailable: %v", c.Sender().ID, tariff.Key, err)
			return c.Edit(
				h.layout.Text(c, "gate_unavailable"),
				h.layout.Markup(c, "user:backToTariffs"),
			)
		}
		h.logger.Errorf("(user: %d) error while creating invite link: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToTariffs"),
		)
	}

	image, err := qrcode.Render(tariff.PaymentURL, &qrcode.Options{
		LogoPath: viper.GetString("settings.qr.logo-path"),
	})
	if err != nil {
		h.logger.Errorf("(user: %d) error while rendering payment qr: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToTariffs"),
		)
	}

	markup := c.Bot().NewMarkup()
	markup.Inline(
		markup.Row(*h.layout.Button(c, "user:tariffs:check", struct {
			Key string
		}{
			Key: tariff.Key,
		})),
		markup.Row(*h.layout.Button(c, "core:hide")),
	)

	_ = c.Delete()
	return c.Send(
		&tele.Photo{
			File: tele.FromReader(bytes.NewReader(image)),
			Caption: h.layout.Text(c, "tariff_payment", struct {
				Name       string
				Price      int
				PaymentURL string
				Invite     string
				Channel    string
			}{
				Name:       tariff.Name,
				Price:      tariff.Price,
				PaymentURL: tariff.PaymentURL,
				Invite:     invite,
				Channel:    tariff.GatingChannelName,
			}),
		},
		markup,
	)
}

// checkMembership verifies the user joined the gating channel and only then
// activates the plan. A bot-side access problem is reported as such, never
// blamed on the user.
func (h Handler) checkMembership(c tele.Context) error {
	tariff, err := h.tariffs.Get(context.Background(), c.Callback().Data)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting tariff: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "core:hide"),
		)
	}

	member, err := h.gate.IsMember(tariff, c.Sender().ID)
	if err != nil {
		if errors.Is(err, errorz.BotAccess) {
			return c.Send(
				h.layout.Text(c, "gate_unavailable"),
				h.layout.Markup(c, "core:hide"),
			)
		}
		h.logger.Errorf("(user: %d) error while checking membership: %v", c.Sender().ID, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "core:hide"),
		)
	}
	if !member {
		return c.Respond(&tele.CallbackResponse{
			Text:      h.layout.Text(c, "membership_not_found"),
			ShowAlert: true,
		})
	}

	sub, err := h.subscriptions.Grant(context.Background(), c.Sender().ID, tariff.Key)
	if err != nil {
		h.logger.Errorf("(user: %d) error while granting tariff %s: %v", c.Sender().ID, tariff.Key, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "core:hide"),
		)
	}

	expires := ""
	if sub.ExpiresAt != nil {
		expires = sub.ExpiresAt.In(location.Location()).Format("02.01.2006 15:04")
	}
	h.logger.Infof("(user: %d) tariff %s activated", c.Sender().ID, tariff.Key)
	_ = c.Delete()
	return c.Send(
		h.layout.Text(c, "tariff_activated", struct {
			Name      string
			ExpiresAt string
		}{
			Name:      tariff.Name,
			ExpiresAt: expires,
		}),
		h.layout.Markup(c, "mainMenu:back"),
	)
}
