package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	"gorm.io/gorm"
)

// AdminTariffKey marks the synthetic unlimited plan of the configured admins.
// It never reaches the database.
const AdminTariffKey = "admin"

type SubscriptionStorage interface {
	Upsert(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error)
	Get(ctx context.Context, userID int64) (*entity.Subscription, error)
	Delete(ctx context.Context, userID int64) error
	GetExpired(ctx context.Context, before time.Time) ([]entity.Subscription, error)
}

type tariffGetter interface {
	Get(ctx context.Context, key string) (*entity.Tariff, error)
}

type channelCounter interface {
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
}

// DailyCounter tracks posts created per user per calendar day.
type DailyCounter interface {
	Get(ctx context.Context, userID int64, day time.Time) (int64, error)
	Incr(ctx context.Context, userID int64, day time.Time) (int64, error)
}

// ChannelKicker removes a user from an external gating channel.
type ChannelKicker interface {
	Kick(channelID int64, userID int64) error
}

// SubscriptionConfig carries the static parts of the subscription policy.
type SubscriptionConfig struct {
	AdminIDs []int64
	TrialKey string         // tariff granted to new users
	Location *time.Location // reference timezone for the daily counter
	Now      func() time.Time
}

type SubscriptionService struct {
	subscriptions SubscriptionStorage
	tariffs       tariffGetter
	channels      channelCounter
	counter       DailyCounter
	logger        *types.Logger

	adminIDs []int64
	trialKey string
	location *time.Location
	now      func() time.Time

	// Serializes the expire-and-replace sequence per user so two concurrent
	// resolves cannot both hand out the grace trial.
	muMu    sync.Mutex
	userMus map[int64]*sync.Mutex

	// kicked remembers the expiry that already triggered an eviction for each
	// user, so every distinct lapse is evicted exactly once. Renewing moves
	// ExpiresAt forward, which re-arms the eviction for the next lapse.
	sweepMu sync.Mutex
	kicked  map[int64]time.Time
}

func NewSubscriptionService(
	subscriptions SubscriptionStorage,
	tariffs tariffGetter,
	channels channelCounter,
	counter DailyCounter,
	logger *types.Logger,
	cfg SubscriptionConfig,
) *SubscriptionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SubscriptionService{
		subscriptions: subscriptions,
		tariffs:       tariffs,
		channels:      channels,
		counter:       counter,
		logger:        logger,
		adminIDs:      cfg.AdminIDs,
		trialKey:      cfg.TrialKey,
		location:      cfg.Location,
		now:           cfg.Now,
		userMus:       make(map[int64]*sync.Mutex),
		kicked:        make(map[int64]time.Time),
	}
}

func (s *SubscriptionService) IsAdmin(userID int64) bool {
	return slices.Contains(s.adminIDs, userID)
}

func (s *SubscriptionService) userMu(userID int64) *sync.Mutex {
	s.muMu.Lock()
	defer s.muMu.Unlock()
	mu, ok := s.userMus[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userMus[userID] = mu
	}
	return mu
}

// Resolve returns the current subscription of a user. New users get a trial,
// users whose first subscription lapsed get a one-time grace trial, and users
// who already used the grace are locked out until a new grant
// (errorz.SubscriptionExpired). Admins get a synthetic unlimited record.
func (s *SubscriptionService) Resolve(ctx context.Context, userID int64) (*entity.Subscription, error) {
	if s.IsAdmin(userID) {
		return &entity.Subscription{
			UserID:      userID,
			TariffKey:   AdminTariffKey,
			ActivatedAt: s.now(),
		}, nil
	}

	mu := s.userMu(userID)
	mu.Lock()
	defer mu.Unlock()

	sub, err := s.subscriptions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.startTrial(ctx, userID, false)
		}
		return nil, err
	}

	if !sub.Expired(s.now()) {
		return sub, nil
	}

	if !sub.HadTrialBefore {
		// One-time grace trial on first expiry. Marking HadTrialBefore here
		// is what prevents the delete-and-recreate infinite trial exploit.
		s.logger.Infof("(user: %d) subscription expired, granting grace trial", userID)
		return s.startTrial(ctx, userID, true)
	}

	// The lapsed record stays in place as the lockout marker: deleting it
	// would make the next resolve look like a brand new user and hand out
	// another trial.
	return nil, errorz.SubscriptionExpired
}

func (s *SubscriptionService) startTrial(ctx context.Context, userID int64, usedGrace bool) (*entity.Subscription, error) {
	tariff, err := s.tariffs.Get(ctx, s.trialKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := &entity.Subscription{
		UserID:         userID,
		TariffKey:      tariff.Key,
		ActivatedAt:    now,
		IsTrial:        true,
		HadTrialBefore: usedGrace,
	}
	if tariff.DurationDays > 0 {
		expires := now.Add(tariff.Duration())
		sub.ExpiresAt = &expires
	}

	return s.subscriptions.Upsert(ctx, sub)
}

// Plan resolves the tariff behind a subscription.
func (s *SubscriptionService) Plan(ctx context.Context, sub *entity.Subscription) (*entity.Tariff, error) {
	if sub.TariffKey == AdminTariffKey {
		return &entity.Tariff{
			Key:           AdminTariffKey,
			Name:          "Admin",
			PostsPerDay:   entity.Unlimited(),
			ChannelsLimit: entity.Unlimited(),
		}, nil
	}
	return s.tariffs.Get(ctx, sub.TariffKey)
}

// CanAddChannel is the admission check for channel registration. Any failure
// to answer precisely is treated as a denial.
func (s *SubscriptionService) CanAddChannel(ctx context.Context, userID int64) bool {
	plan, ok := s.resolvePlan(ctx, userID)
	if !ok {
		return false
	}
	count, err := s.channels.CountByOwner(ctx, userID)
	if err != nil {
		s.logger.Errorf("(user: %d) error while counting channels: %v", userID, err)
		return false
	}
	return plan.ChannelsLimit.Allows(count)
}

// CanSchedulePost is the admission check for post creation against the plan's
// per-day quota, counted per calendar day in the reference timezone.
func (s *SubscriptionService) CanSchedulePost(ctx context.Context, userID int64) bool {
	plan, ok := s.resolvePlan(ctx, userID)
	if !ok {
		return false
	}
	count, err := s.counter.Get(ctx, userID, s.today())
	if err != nil {
		s.logger.Errorf("(user: %d) error while reading daily counter: %v", userID, err)
		return false
	}
	return plan.PostsPerDay.Allows(count)
}

// RecordPostCreated charges one post against today's quota.
func (s *SubscriptionService) RecordPostCreated(ctx context.Context, userID int64) error {
	_, err := s.counter.Incr(ctx, userID, s.today())
	return err
}

// PostsToday returns the number of posts the user created today.
func (s *SubscriptionService) PostsToday(ctx context.Context, userID int64) (int64, error) {
	return s.counter.Get(ctx, userID, s.today())
}

func (s *SubscriptionService) resolvePlan(ctx context.Context, userID int64) (*entity.Tariff, bool) {
	sub, err := s.Resolve(ctx, userID)
	if err != nil {
		if !errors.Is(err, errorz.SubscriptionExpired) {
			s.logger.Errorf("(user: %d) error while resolving subscription: %v", userID, err)
		}
		return nil, false
	}
	plan, err := s.Plan(ctx, sub)
	if err != nil {
		s.logger.Errorf("(user: %d) error while resolving tariff %s: %v", userID, sub.TariffKey, err)
		return nil, false
	}
	return plan, true
}

func (s *SubscriptionService) today() time.Time {
	return s.now().In(s.location)
}

// Grant activates a tariff for a user. A repeat grant of the same active
// tariff extends the current expiry (renewal); anything else replaces the
// record. The trial history of the user is preserved.
func (s *SubscriptionService) Grant(ctx context.Context, userID int64, tariffKey string) (*entity.Subscription, error) {
	tariff, err := s.tariffs.Get(ctx, tariffKey)
	if err != nil {
		return nil, err
	}

	mu := s.userMu(userID)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	from := now
	hadTrial := false

	existing, err := s.subscriptions.Get(ctx, userID)
	if err == nil {
		hadTrial = existing.HadTrialBefore || existing.IsTrial
		if existing.TariffKey == tariffKey && !existing.Expired(now) && existing.ExpiresAt != nil {
			from = *existing.ExpiresAt
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := &entity.Subscription{
		UserID:         userID,
		TariffKey:      tariffKey,
		ActivatedAt:    now,
		HadTrialBefore: hadTrial,
	}
	if tariff.DurationDays > 0 {
		expires := from.Add(tariff.Duration())
		sub.ExpiresAt = &expires
	}

	s.logger.Infof("(user: %d) granted tariff %s until %v", userID, tariffKey, sub.ExpiresAt)
	return s.subscriptions.Upsert(ctx, sub)
}

// Revoke removes the subscription record of a user.
func (s *SubscriptionService) Revoke(ctx context.Context, userID int64) error {
	return s.subscriptions.Delete(ctx, userID)
}

// StartExpirySweep launches the hourly sweep that evicts lapsed users from
// the gating channels of their plans. Records themselves are handled by lazy
// expiry in Resolve, so the sweep must not touch them: deleting here would
// bypass the grace-trial path.
func (s *SubscriptionService) StartExpirySweep(kicker ChannelKicker, interval time.Duration) {
	s.logger.Info("Starting subscription expiry sweep")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			s.sweepExpired(context.Background(), kicker)
		}
	}()
}

func (s *SubscriptionService) sweepExpired(ctx context.Context, kicker ChannelKicker) {
	subs, err := s.subscriptions.GetExpired(ctx, s.now())
	if err != nil {
		s.logger.Errorf("failed to get expired subscriptions: %v", err)
		return
	}

	// Users missing from the expired set renewed since the last pass; their
	// markers are stale and would otherwise accumulate forever.
	expired := make(map[int64]struct{}, len(subs))
	for _, sub := range subs {
		expired[sub.UserID] = struct{}{}
	}
	s.sweepMu.Lock()
	for userID := range s.kicked {
		if _, still := expired[userID]; !still {
			delete(s.kicked, userID)
		}
	}
	s.sweepMu.Unlock()

	for _, sub := range subs {
		if sub.ExpiresAt == nil {
			continue
		}
		s.sweepMu.Lock()
		last, done := s.kicked[sub.UserID]
		s.sweepMu.Unlock()
		if done && last.Equal(*sub.ExpiresAt) {
			continue
		}

		plan, errPlan := s.tariffs.Get(ctx, sub.TariffKey)
		if errPlan != nil {
			s.logger.Errorf("(user: %d) failed to resolve expired tariff %s: %v", sub.UserID, sub.TariffKey, errPlan)
			continue
		}
		if plan.Gated() {
			if errKick := kicker.Kick(plan.GatingChannelID, sub.UserID); errKick != nil {
				s.logger.Errorf("(user: %d) failed to evict from gating channel %d: %v",
					sub.UserID, plan.GatingChannelID, errKick)
				continue
			}
			s.logger.Infof("(user: %d) evicted from gating channel %d after expiry", sub.UserID, plan.GatingChannelID)
		}

		s.sweepMu.Lock()
		s.kicked[sub.UserID] = *sub.ExpiresAt
		s.sweepMu.Unlock()
	}
}
