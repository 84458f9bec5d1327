package bot

import (
	"context"
	"sync"
	"time"

	"github.com/nlypage/intele"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/zenpost/planner-bot/internal/adapters/config"
	"github.com/zenpost/planner-bot/internal/adapters/controller/telegram/sender"
	postgresStorage "github.com/zenpost/planner-bot/internal/adapters/database/postgres"
	"github.com/zenpost/planner-bot/internal/adapters/database/redis"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/internal/domain/service"
	"github.com/zenpost/planner-bot/internal/domain/utils/location"
	"github.com/zenpost/planner-bot/pkg/logger"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/layout"
	"gorm.io/gorm"
)

type Bot struct {
	*tele.Bot
	Layout *layout.Layout
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *types.Logger
	Input  *intele.InputManager

	// Stateful services shared by all handlers: the scheduler owns the timer
	// map, the subscription service owns the per-user mutexes.
	Posts         *service.PostService
	Subscriptions *service.SubscriptionService
	Tariffs       *service.TariffService
	Gate          *service.GateService
}

func New(config *config.Config) (*Bot, error) {
	lt, err := layout.New("telegram.yml")
	if err != nil {
		return nil, err
	}

	settings := lt.Settings()
	botLogger, err := logger.Named("bot")
	if err != nil {
		return nil, err
	}
	settings.OnError = func(err error, ctx tele.Context) {
		if ctx.Callback() == nil {
			botLogger.Errorf("(user: %d) | Error: %v", ctx.Sender().ID, err)
		} else {
			botLogger.Errorf("(user: %d) | unique: %s | Error: %v", ctx.Sender().ID, ctx.Callback().Unique, err)
		}
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, err
	}

	if cmds := lt.Commands(); cmds != nil {
		if err = b.SetCommands(cmds); err != nil {
			return nil, err
		}
	}

	schedulerLogger, err := logger.Named("scheduler")
	if err != nil {
		return nil, err
	}
	subscriptionLogger, err := logger.Named("subscription")
	if err != nil {
		return nil, err
	}

	postStorage := postgresStorage.NewPostStorage(config.Database)
	tariffStorage := postgresStorage.NewTariffStorage(config.Database)
	channelStorage := postgresStorage.NewChannelStorage(config.Database)
	subscriptionStorage := postgresStorage.NewSubscriptionStorage(config.Database)

	admins := viper.GetIntSlice("bot.admin-ids")
	adminIDs := make([]int64, len(admins))
	for i, v := range admins {
		adminIDs[i] = int64(v)
	}

	bot := &Bot{
		Bot:    b,
		Layout: lt,
		DB:     config.Database,
		Redis:  config.Redis,
		Input:  intele.NewInputManager(intele.InputOptions{}),
		Logger: botLogger,
	}

	bot.Posts = service.NewPostService(
		postStorage,
		sender.New(b, schedulerLogger),
		schedulerLogger,
		nil,
	)
	bot.Subscriptions = service.NewSubscriptionService(
		subscriptionStorage,
		tariffStorage,
		channelStorage,
		config.Redis.Counters,
		subscriptionLogger,
		service.SubscriptionConfig{
			AdminIDs: adminIDs,
			TrialKey: viper.GetString("settings.trial.tariff"),
			Location: location.Location(),
		},
	)
	bot.Tariffs = service.NewTariffService(tariffStorage)
	bot.Gate = service.NewGateService(b, botLogger)

	return bot, nil
}

func (b *Bot) Start() {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		logger.Log.Info("Bot starting")

		if viper.GetBool("settings.logging.log-to-channel") {
			notifyLogger, err := logger.Named("notify")
			if err != nil {
				logger.Log.Errorf("Failed to create notify logger: %v", err)
			} else {
				userStorage := postgresStorage.NewUserStorage(b.DB)
				broadcastService := service.NewBroadcastService(b.Bot, b.Layout, notifyLogger, userStorage)
				logHook, err := broadcastService.LogHook(
					viper.GetInt64("settings.logging.channel-id"),
					viper.GetString("settings.logging.locale"),
					zapcore.Level(viper.GetInt("settings.logging.channel-log-level")),
				)
				if err != nil {
					logger.Log.Errorf("Failed to create notify log hook: %v", err)
				} else {
					logger.SetLogHook(logHook)
				}
			}
		}

		ctx := context.Background()
		if err := b.Tariffs.Seed(ctx, seedTariffs()); err != nil {
			logger.Log.Panicf("Failed to seed tariffs: %v", err)
		}
		if _, err := b.Posts.Restore(ctx); err != nil {
			logger.Log.Errorf("Failed to restore pending post timers: %v", err)
		}
		b.Subscriptions.StartExpirySweep(b.Gate, time.Hour)

		b.Bot.Start()
	}()

	wg.Wait()
}

// seedTariffs builds the initial plan catalogue from the config. Records
// already present in the database are kept as the admin edited them.
func seedTariffs() []entity.Tariff {
	return []entity.Tariff{
		{
			Key:           "trial",
			Name:          "Пробный",
			PostsPerDay:   entity.LimitOf(viper.GetInt64("settings.trial.posts-per-day")),
			ChannelsLimit: entity.LimitOf(viper.GetInt64("settings.trial.channels-limit")),
			DurationDays:  viper.GetInt("settings.trial.days"),
			Perks:         []string{"Полный доступ на время пробного периода"},
		},
		{
			Key:           "standard",
			Name:          "Стандарт",
			Price:         viper.GetInt("tariffs.standard.price"),
			PostsPerDay:   entity.LimitOf(20),
			ChannelsLimit: entity.LimitOf(10),
			DurationDays:  30,
			PaymentURL:    viper.GetString("tariffs.standard.payment-url"),
			Perks:         []string{"До 20 постов в день", "До 10 каналов"},
		},
		{
			Key:           "premium",
			Name:          "Премиум",
			Price:         viper.GetInt("tariffs.premium.price"),
			PostsPerDay:   entity.Unlimited(),
			ChannelsLimit: entity.Unlimited(),
			DurationDays:  30,
			PaymentURL:    viper.GetString("tariffs.premium.payment-url"),
			Perks:         []string{"Без ограничений по постам", "Без ограничений по каналам"},
		},
	}
}
