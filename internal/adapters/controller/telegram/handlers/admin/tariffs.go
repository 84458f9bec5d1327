package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nlypage/intele/collector"
	"github.com/spf13/viper"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/internal/domain/utils/validator"
	tele "gopkg.in/telebot.v3"
)

// tariffFields are the admin-editable plan fields shown in the tariff menu.
var tariffFields = []struct {
	Field string
	Label string
}{
	{"price", "Цена"},
	{"posts", "Постов в день"},
	{"channels", "Лимит каналов"},
	{"days", "Длительность, дней"},
	{"url", "Ссылка на оплату"},
	{"gate", "ID канала-шлюза"},
	{"ttl", "Срок инвайта, часов"},
}

func (h Handler) tariffsList(c tele.Context) error {
	h.logger.Infof("(user: %d) edit admin tariffs list", c.Sender().ID)

	tariffs, err := h.tariffs.GetAll(context.Background())
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting tariffs: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToMenu"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, tariff := range tariffs {
		rows = append(rows, markup.Row(*h.layout.Button(c, "admin:tariffs:tariff", struct {
			Key  string
			Name string
		}{
			Key:  tariff.Key,
			Name: tariff.Name,
		})))
	}
	rows = append(rows, markup.Row(*h.layout.Button(c, "admin:tariffs:add")))
	rows = append(rows, markup.Row(*h.layout.Button(c, "admin:back_to_menu")))
	markup.Inline(rows...)

	return c.Edit(
		h.layout.Text(c, "admin_tariffs_list"),
		markup,
	)
}

func (h Handler) tariffMenu(c tele.Context) error {
	tariff, err := h.tariffs.Get(context.Background(), c.Callback().Data)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting tariff: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToTariffs"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, field := range tariffFields {
		rows = append(rows, markup.Row(*h.layout.Button(c, "admin:tariffs:edit", struct {
			Key   string
			Field string
			Label string
		}{
			Key:   tariff.Key,
			Field: field.Field,
			Label: field.Label,
		})))
	}
	rows = append(rows, markup.Row(*h.layout.Button(c, "admin:tariffs:delete", struct {
		Key string
	}{
		Key: tariff.Key,
	})))
	rows = append(rows, markup.Row(*h.layout.Button(c, "admin:backToTariffsButton")))
	markup.Inline(rows...)

	return c.Edit(
		h.layout.Text(c, "admin_tariff_menu_text", struct {
			Key           string
			Name          string
			Price         int
			PostsPerDay   string
			ChannelsLimit string
			DurationDays  int
			PaymentURL    string
			GatingChannel int64
			InviteTTL     string
		}{
			Key:           tariff.Key,
			Name:          tariff.Name,
			Price:         tariff.Price,
			PostsPerDay:   tariff.PostsPerDay.String(),
			ChannelsLimit: tariff.ChannelsLimit.String(),
			DurationDays:  tariff.DurationDays,
			PaymentURL:    tariff.PaymentURL,
			GatingChannel: tariff.GatingChannelID,
			InviteTTL:     tariff.InviteTTL.String(),
		}),
		markup,
	)
}

// addTariff collects a new plan field by field. Payment url and gating are
// left empty: a fresh plan starts manual-only and is wired up via the edit
// menu afterwards.
func (h Handler) addTariff(c tele.Context) error {
	h.logger.Infof("(user: %d) add tariff request", c.Sender().ID)

	var tariff entity.Tariff
	steps := []struct {
		prompt string
		accept func(string) bool
	}{
		{"input_tariff_key", func(v string) bool {
			key, ok := validator.TariffKey(v)
			tariff.Key = key
			return ok
		}},
		{"input_tariff_name", func(v string) bool {
			tariff.Name = strings.TrimSpace(v)
			return tariff.Name != ""
		}},
		{"input_tariff_price", func(v string) bool {
			price, ok := validator.PositiveInt(v)
			tariff.Price = price
			return ok
		}},
		{"input_tariff_posts", func(v string) bool {
			limit, ok := validator.TariffLimit(v)
			tariff.PostsPerDay = limit
			return ok
		}},
		{"input_tariff_channels", func(v string) bool {
			limit, ok := validator.TariffLimit(v)
			tariff.ChannelsLimit = limit
			return ok
		}},
		{"input_tariff_days", func(v string) bool {
			days, ok := validator.PositiveInt(v)
			tariff.DurationDays = days
			return ok
		}},
	}

	inputCollector := collector.New()
	_ = c.Edit(
		h.layout.Text(c, steps[0].prompt),
		h.layout.Markup(c, "admin:backToTariffs"),
	)
	inputCollector.Collect(c.Message())

	for i := 0; i < len(steps); {
		step := steps[i]
		message, canceled, errGet := h.input.Get(context.Background(), c.Sender().ID, 0)
		if message != nil {
			inputCollector.Collect(message)
		}
		switch {
		case canceled:
			_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true, ExcludeLast: true})
			return nil
		case errGet != nil:
			h.logger.Errorf("(user: %d) error while input new tariff: %v", c.Sender().ID, errGet)
			_ = inputCollector.Send(c,
				h.layout.Text(c, "input_error", h.layout.Text(c, step.prompt)),
				h.layout.Markup(c, "admin:backToTariffs"),
			)
		case !step.accept(message.Text):
			_ = inputCollector.Send(c,
				h.layout.Text(c, "invalid_tariff_value", h.layout.Text(c, step.prompt)),
				h.layout.Markup(c, "admin:backToTariffs"),
			)
		default:
			i++
			if i < len(steps) {
				_ = inputCollector.Send(c,
					h.layout.Text(c, steps[i].prompt),
					h.layout.Markup(c, "admin:backToTariffs"),
				)
			}
		}
	}
	_ = inputCollector.Clear(c, collector.ClearOptions{IgnoreErrors: true})

	created, err := h.tariffs.Create(context.Background(), &tariff)
	if err != nil {
		if errors.Is(err, errorz.TariffExists) {
			return c.Send(
				h.layout.Text(c, "tariff_exists", tariff.Key),
				h.layout.Markup(c, "admin:backToTariffs"),
			)
		}
		h.logger.Errorf("(user: %d) error while creating tariff %s: %v", c.Sender().ID, tariff.Key, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToTariffs"),
		)
	}

	h.logger.Infof("(user: %d) tariff %s created", c.Sender().ID, created.Key)
	return c.Send(
		h.layout.Text(c, "tariff_created", created.Name),
		h.layout.Markup(c, "admin:backToTariffs"),
	)
}

// deleteTariff removes a plan. The trial plan is protected: the subscription
// lifecycle needs it to exist.
func (h Handler) deleteTariff(c tele.Context) error {
	key := c.Callback().Data
	if key == viper.GetString("settings.trial.tariff") {
		return c.Edit(
			h.layout.Text(c, "cannot_delete_trial"),
			h.layout.Markup(c, "admin:backToTariffs"),
		)
	}

	h.logger.Infof("(user: %d) delete tariff %s", c.Sender().ID, key)
	if err := h.tariffs.Delete(context.Background(), key); err != nil {
		h.logger.Errorf("(user: %d) error while deleting tariff %s: %v", c.Sender().ID, key, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToTariffs"),
		)
	}

	return c.Edit(
		h.layout.Text(c, "tariff_deleted", key),
		h.layout.Markup(c, "admin:backToTariffs"),
	)
}

// editTariff runs the edit loop for a single plan field. The input is parsed
// per field; invalid values keep the loop alive.
func (h Handler) editTariff(c tele.Context) error {
	callbackData := strings.Split(c.Callback().Data, " ")
	if len(callbackData) != 2 {
		return errorz.InvalidCallbackData
	}
	tariffKey := callbackData[0]
	field := callbackData[1]

	h.logger.Infof("(user: %d) edit tariff %s field %s", c.Sender().ID, tariffKey, field)

	promptKey := "input_tariff_" + field
	inputCollector := collector.New()
	_ = c.Edit(
		h.layout.Text(c, promptKey),
		h.layout.Markup(c, "admin:backToTariffs"),
	)
	inputCollector.Collect(c.Message())

	var (
		update service.UpdateTariffInput
		done   bool
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
			h.logger.Errorf("(user: %d) error while input tariff field: %v", c.Sender().ID, errGet)
			_ = inputCollector.Send(c,
				h.layout.Text(c, "input_error", h.layout.Text(c, promptKey)),
				h.layout.Markup(c, "admin:backToTariffs"),
			)
		default:
			parsed, ok := parseTariffField(field, message.Text, &update)
			if !ok {
				return errorz.InvalidCallbackData
			}
			if !parsed {
				_ = inputCollector.Send(c,
					h.layout.Text(c, "invalid_tariff_value", h.layout.Text(c, promptKey)),
					h.layout.Markup(c, "admin:backToTariffs"),
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

	tariff, err := h.tariffs.Update(context.Background(), tariffKey, update)
	if err != nil {
		h.logger.Errorf("(user: %d) error while updating tariff %s: %v", c.Sender().ID, tariffKey, err)
		return c.Send(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "admin:backToTariffs"),
		)
	}

	h.logger.Infof("(user: %d) tariff %s updated", c.Sender().ID, tariffKey)
	return c.Send(
		h.layout.Text(c, "tariff_updated", tariff.Name),
		h.layout.Markup(c, "admin:backToTariffs"),
	)
}

// parseTariffField parses one field value into the update. The first result
// reports whether the value was valid, the second whether the field itself is
// known.
func parseTariffField(field, value string, update *service.UpdateTariffInput) (parsed bool, known bool) {
	switch field {
	case "price":
		price, ok := validator.PositiveInt(value)
		if !ok {
			return false, true
		}
		update.Price = &price
	case "posts":
		limit, ok := validator.TariffLimit(value)
		if !ok {
			return false, true
		}
		update.PostsPerDay = &limit
	case "channels":
		limit, ok := validator.TariffLimit(value)
		if !ok {
			return false, true
		}
		update.ChannelsLimit = &limit
	case "days":
		days, ok := validator.PositiveInt(value)
		if !ok {
			return false, true
		}
		update.DurationDays = &days
	case "url":
		url := strings.TrimSpace(value)
		if !strings.HasPrefix(url, "http") {
			return false, true
		}
		update.PaymentURL = &url
	case "gate":
		channelID, ok := validator.TelegramID(value)
		if !ok {
			return false, true
		}
		update.GatingChannelID = &channelID
	case "ttl":
		hours, ok := validator.PositiveInt(value)
		if !ok {
			return false, true
		}
		ttl := time.Duration(hours) * time.Hour
		update.InviteTTL = &ttl
	default:
		return false, false
	}
	return true, true
}
