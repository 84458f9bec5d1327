package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/pkg/logger/types"
)

func testLogger() *types.Logger {
	return &types.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type fakeSubscriptionStorage struct {
	mu   sync.Mutex
	subs map[int64]entity.Subscription
}

func newFakeSubscriptionStorage() *fakeSubscriptionStorage {
	return &fakeSubscriptionStorage{subs: make(map[int64]entity.Subscription)}
}

func (s *fakeSubscriptionStorage) Upsert(_ context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = *sub
	stored := s.subs[sub.UserID]
	return &stored, nil
}

func (s *fakeSubscriptionStorage) Get(_ context.Context, userID int64) (*entity.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sub, nil
}

func (s *fakeSubscriptionStorage) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, userID)
	return nil
}

func (s *fakeSubscriptionStorage) GetExpired(_ context.Context, before time.Time) ([]entity.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []entity.Subscription
	for _, sub := range s.subs {
		if sub.ExpiresAt != nil && sub.ExpiresAt.Before(before) {
			expired = append(expired, sub)
		}
	}
	return expired, nil
}

type fakeTariffGetter struct {
	tariffs map[string]entity.Tariff
}

func (f *fakeTariffGetter) Get(_ context.Context, key string) (*entity.Tariff, error) {
	tariff, ok := f.tariffs[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tariff, nil
}

type fakeChannelCounter struct {
	count int64
	err   error
}

func (f *fakeChannelCounter) CountByOwner(_ context.Context, _ int64) (int64, error) {
	return f.count, f.err
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemCounter() *memCounter {
	return &memCounter{counts: make(map[string]int64)}
}

func (m *memCounter) key(userID int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", userID, day.Format("2006-01-02"))
}

func (m *memCounter) Get(_ context.Context, userID int64, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[m.key(userID, day)], nil
}

func (m *memCounter) Incr(_ context.Context, userID int64, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[m.key(userID, day)]++
	return m.counts[m.key(userID, day)], nil
}

type fakeKicker struct {
	mu    sync.Mutex
	calls [][2]int64
}

func (f *fakeKicker) Kick(channelID int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]int64{channelID, userID})
	return nil
}

type subscriptionFixture struct {
	service  *SubscriptionService
	storage  *fakeSubscriptionStorage
	channels *fakeChannelCounter
	counter  *memCounter
	now      time.Time
}

func (f *subscriptionFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()

	fixture := &subscriptionFixture{
		storage:  newFakeSubscriptionStorage(),
		channels: &fakeChannelCounter{},
		counter:  newMemCounter(),
		now:      time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}

	tariffs := &fakeTariffGetter{tariffs: map[string]entity.Tariff{
		"trial": {
			Key:           "trial",
			Name:          "Trial",
			PostsPerDay:   entity.LimitOf(3),
			ChannelsLimit: entity.LimitOf(1),
			DurationDays:  7,
		},
		"standard": {
			Key:           "standard",
			Name:          "Standard",
			Price:         490,
			PostsPerDay:   entity.LimitOf(20),
			ChannelsLimit: entity.LimitOf(10),
			DurationDays:  30,
		},
		"premium": {
			Key:             "premium",
			Name:            "Premium",
			Price:           990,
			PostsPerDay:     entity.Unlimited(),
			ChannelsLimit:   entity.Unlimited(),
			DurationDays:    30,
			GatingChannelID: -100500,
		},
	}}

	fixture.service = NewSubscriptionService(
		fixture.storage,
		tariffs,
		fixture.channels,
		fixture.counter,
		testLogger(),
		SubscriptionConfig{
			AdminIDs: []int64{999},
			TrialKey: "trial",
			Location: time.UTC,
			Now:      func() time.Time { return fixture.now },
		},
	)
	return fixture
}

func TestResolve_NewUserGetsTrial(t *testing.T) {
	f := newSubscriptionFixture(t)

	sub, err := f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, sub.IsTrial)
	assert.False(t, sub.HadTrialBefore)
	assert.Equal(t, "trial", sub.TariffKey)
	require.NotNil(t, sub.ExpiresAt)
	assert.Equal(t, f.now.Add(7*24*time.Hour), *sub.ExpiresAt)
}

func TestResolve_ActiveSubscriptionIsReturnedAsIs(t *testing.T) {
	f := newSubscriptionFixture(t)

	first, err := f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)

	second, err := f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first.ActivatedAt, second.ActivatedAt)
}

func TestResolve_GraceTrialOnFirstExpiry(t *testing.T) {
	f := newSubscriptionFixture(t)

	_, err := f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)

	f.advance(8 * 24 * time.Hour)

	sub, err := f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, sub.IsTrial)
	assert.True(t, sub.HadTrialBefore, "the grace trial must be marked as used")
	require.NotNil(t, sub.ExpiresAt)
	assert.Equal(t, f.now.Add(7*24*time.Hour), *sub.ExpiresAt)
}

func TestResolve_LockoutAfterGrace(t *testing.T) {
	f := newSubscriptionFixture(t)

	_, err := f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)
	f.advance(8 * 24 * time.Hour)
	_, err = f.service.Resolve(context.Background(), 1)
	require.NoError(t, err)
	f.advance(8 * 24 * time.Hour)

	_, err = f.service.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, errorz.SubscriptionExpired)

	// Lockout is terminal until an explicit grant: no amount of resolving
	// hands out another trial.
	_, err = f.service.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, errorz.SubscriptionExpired)

	sub, err := f.service.Grant(context.Background(), 1, "standard")
	require.NoError(t, err)
	assert.True(t, sub.HadTrialBefore)
}

func TestResolve_AdminIsSyntheticUnlimited(t *testing.T) {
	f := newSubscriptionFixture(t)

	sub, err := f.service.Resolve(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, AdminTariffKey, sub.TariffKey)
	assert.Nil(t, sub.ExpiresAt)

	plan, err := f.service.Plan(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, plan.PostsPerDay.Unlimited)
	assert.True(t, plan.ChannelsLimit.Unlimited)

	// Nothing reaches the database for admins.
	_, err = f.storage.Get(context.Background(), 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCanAddChannel_RespectsLimit(t *testing.T) {
	f := newSubscriptionFixture(t)

	f.channels.count = 0
	assert.True(t, f.service.CanAddChannel(context.Background(), 1))

	f.channels.count = 1 // trial allows one channel
	assert.False(t, f.service.CanAddChannel(context.Background(), 1))
}

func TestCanAddChannel_FailsClosed(t *testing.T) {
	f := newSubscriptionFixture(t)

	f.channels.err = assert.AnError
	assert.False(t, f.service.CanAddChannel(context.Background(), 1))
}

func TestCanSchedulePost_DailyQuota(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, f.service.CanSchedulePost(ctx, 1), "post %d must be allowed", i+1)
		require.NoError(t, f.service.RecordPostCreated(ctx, 1))
	}
	assert.False(t, f.service.CanSchedulePost(ctx, 1))

	// A new calendar day starts a fresh quota.
	f.advance(24 * time.Hour)
	assert.True(t, f.service.CanSchedulePost(ctx, 1))
}

func TestGrant_SameTariffRenewalExtends(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	first, err := f.service.Grant(ctx, 1, "standard")
	require.NoError(t, err)
	require.NotNil(t, first.ExpiresAt)

	f.advance(24 * time.Hour)
	second, err := f.service.Grant(ctx, 1, "standard")
	require.NoError(t, err)
	require.NotNil(t, second.ExpiresAt)
	assert.Equal(t, first.ExpiresAt.Add(30*24*time.Hour), *second.ExpiresAt,
		"renewal extends from the current expiry, not from now")
}

func TestGrant_DifferentTariffReplaces(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, 1, "standard")
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	sub, err := f.service.Grant(ctx, 1, "premium")
	require.NoError(t, err)
	assert.Equal(t, "premium", sub.TariffKey)
	require.NotNil(t, sub.ExpiresAt)
	assert.Equal(t, f.now.Add(30*24*time.Hour), *sub.ExpiresAt)
}

func TestGrant_PreservesTrialHistory(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := f.service.Resolve(ctx, 1) // trial
	require.NoError(t, err)

	sub, err := f.service.Grant(ctx, 1, "standard")
	require.NoError(t, err)
	assert.True(t, sub.HadTrialBefore,
		"a paid plan after a trial must not re-open the trial path on expiry")

	// Once the paid plan lapses the user is locked out, not re-trialed.
	f.advance(31 * 24 * time.Hour)
	_, err = f.service.Resolve(ctx, 1)
	require.ErrorIs(t, err, errorz.SubscriptionExpired)
}

func TestRevoke(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, 1, "standard")
	require.NoError(t, err)
	require.NoError(t, f.service.Revoke(ctx, 1))

	_, err = f.storage.Get(ctx, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSweepExpired_KicksFromGatedChannelsOnce(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	expired := f.now.Add(-time.Hour)
	_, err := f.storage.Upsert(ctx, &entity.Subscription{
		UserID: 1, TariffKey: "premium", ExpiresAt: &expired,
	})
	require.NoError(t, err)
	_, err = f.storage.Upsert(ctx, &entity.Subscription{
		UserID: 2, TariffKey: "standard", ExpiresAt: &expired,
	})
	require.NoError(t, err)

	kicker := &fakeKicker{}
	f.service.sweepExpired(ctx, kicker)

	require.Len(t, kicker.calls, 1, "only the gated plan triggers an eviction")
	assert.Equal(t, [2]int64{-100500, 1}, kicker.calls[0])

	// Records stay in place: lazy expiry in Resolve owns their lifecycle.
	_, err = f.storage.Get(ctx, 1)
	require.NoError(t, err)

	f.service.sweepExpired(ctx, kicker)
	assert.Len(t, kicker.calls, 1, "a user is evicted at most once per lapse")
}

func TestSweepExpired_EvictsAgainAfterRenewalLapse(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	kicker := &fakeKicker{}

	_, err := f.service.Grant(ctx, 1, "premium")
	require.NoError(t, err)
	f.advance(31 * 24 * time.Hour)

	f.service.sweepExpired(ctx, kicker)
	require.Len(t, kicker.calls, 1)

	// Re-purchase: the subscription is active again, the sweep has nothing to
	// do and forgets the user.
	_, err = f.service.Grant(ctx, 1, "premium")
	require.NoError(t, err)
	f.service.sweepExpired(ctx, kicker)
	assert.Len(t, kicker.calls, 1)

	f.service.sweepMu.Lock()
	_, tracked := f.service.kicked[1]
	f.service.sweepMu.Unlock()
	assert.False(t, tracked, "renewed users must drop out of the eviction ledger")

	// The renewed plan lapses too: the second lapse is evicted again.
	f.advance(61 * 24 * time.Hour)
	f.service.sweepExpired(ctx, kicker)
	require.Len(t, kicker.calls, 2, "a repeat lapse must be evicted again")
	assert.Equal(t, [2]int64{-100500, 1}, kicker.calls[1])

	// And stays evicted exactly once.
	f.service.sweepExpired(ctx, kicker)
	assert.Len(t, kicker.calls, 2)
}
