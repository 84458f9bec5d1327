package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
)

type fakePostStorage struct {
	mu    sync.Mutex
	posts map[string]entity.ScheduledPost
}

func newFakePostStorage() *fakePostStorage {
	return &fakePostStorage{posts: make(map[string]entity.ScheduledPost)}
}

func (s *fakePostStorage) Create(_ context.Context, post *entity.ScheduledPost) (*entity.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = *post
	stored := s.posts[post.ID]
	return &stored, nil
}

func (s *fakePostStorage) Get(_ context.Context, id string) (*entity.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &post, nil
}

func (s *fakePostStorage) Update(_ context.Context, post *entity.ScheduledPost) (*entity.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = *post
	stored := s.posts[post.ID]
	return &stored, nil
}

func (s *fakePostStorage) GetByOwner(_ context.Context, ownerID int64) ([]entity.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []entity.ScheduledPost
	for _, post := range s.posts {
		if post.OwnerID == ownerID {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *fakePostStorage) GetPendingByOwner(_ context.Context, ownerID int64) ([]entity.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []entity.ScheduledPost
	for _, post := range s.posts {
		if post.OwnerID == ownerID && post.Status == entity.PostStatusScheduled {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *fakePostStorage) GetAllPending(_ context.Context) ([]entity.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []entity.ScheduledPost
	for _, post := range s.posts {
		if post.Status == entity.PostStatusScheduled {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *fakePostStorage) status(id string) entity.PostStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[id].Status
}

type fakePostSender struct {
	mu       sync.Mutex
	sent     []string
	err      error
	attempts int
}

func (f *fakePostSender) SendPost(post *entity.ScheduledPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, post.ID)
	return nil
}

func (f *fakePostSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakePostSender) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func newPostFixture() (*PostService, *fakePostStorage, *fakePostSender) {
	storage := newFakePostStorage()
	sender := &fakePostSender{}
	return NewPostService(storage, sender, testLogger(), nil), storage, sender
}

func textInput(ownerID int64, fireAt time.Time, fromFreeText bool) ScheduleInput {
	return ScheduleInput{
		OwnerID:      ownerID,
		ChannelID:    1,
		Kind:         entity.ContentText,
		Payload:      "hello",
		FireAt:       fireAt,
		FromFreeText: fromFreeText,
	}
}

func TestSchedule_DeliversAtFireTime(t *testing.T) {
	service, storage, sender := newPostFixture()

	post, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(30*time.Millisecond), false))
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)
	assert.Equal(t, entity.PostStatusScheduled, post.Status)

	assert.Eventually(t, func() bool {
		return storage.status(post.ID) == entity.PostStatusSent
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sender.sentCount())
}

func TestSchedule_FreeTextRejectsPastAndTooSoon(t *testing.T) {
	service, storage, _ := newPostFixture()

	_, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(-time.Minute), true))
	require.ErrorIs(t, err, errorz.TimeInPast)

	_, err = service.Schedule(context.Background(), textInput(1, time.Now().Add(10*time.Second), true))
	require.ErrorIs(t, err, errorz.LeadTimeTooSoon)

	storage.mu.Lock()
	defer storage.mu.Unlock()
	assert.Empty(t, storage.posts, "rejected input must not leave records behind")
}

func TestSchedule_MenuPathSkipsLeadTimeCheck(t *testing.T) {
	service, _, _ := newPostFixture()

	// The same fire time the free-text path rejects is fine from the menu.
	post, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(10*time.Second), false))
	require.NoError(t, err)

	cancelled, err := service.Cancel(context.Background(), post.ID, 1)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestCancel_BeforeFire(t *testing.T) {
	service, storage, sender := newPostFixture()

	post, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(80*time.Millisecond), false))
	require.NoError(t, err)

	cancelled, err := service.Cancel(context.Background(), post.ID, 1)
	require.NoError(t, err)
	require.True(t, cancelled)
	assert.Equal(t, entity.PostStatusCancelled, storage.status(post.ID))

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, sender.sentCount(), "a cancelled post must never be delivered")

	// A second cancel of the same post is a no-op.
	cancelled, err = service.Cancel(context.Background(), post.ID, 1)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestCancel_WrongOwner(t *testing.T) {
	service, storage, _ := newPostFixture()

	post, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(time.Hour), false))
	require.NoError(t, err)

	cancelled, err := service.Cancel(context.Background(), post.ID, 2)
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Equal(t, entity.PostStatusScheduled, storage.status(post.ID))
}

func TestCancel_UnknownPost(t *testing.T) {
	service, _, _ := newPostFixture()

	cancelled, err := service.Cancel(context.Background(), "nope", 1)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestFire_SenderFailureMarksError(t *testing.T) {
	service, storage, sender := newPostFixture()
	sender.err = assert.AnError

	post, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(10*time.Millisecond), false))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return storage.status(post.ID) == entity.PostStatusError
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := storage.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.FailReason)

	// No retry: one attempt, then the error status is final.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, sender.attemptCount())
}

func TestFire_SkipsRecordCancelledBehindItsBack(t *testing.T) {
	service, storage, sender := newPostFixture()

	post, err := service.Schedule(context.Background(), textInput(1, time.Now().Add(50*time.Millisecond), false))
	require.NoError(t, err)

	// Flip the record directly, as a concurrent cancel would.
	stored, err := storage.Get(context.Background(), post.ID)
	require.NoError(t, err)
	stored.Status = entity.PostStatusCancelled
	_, err = storage.Update(context.Background(), stored)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, sender.sentCount(), "the wake-time status recheck must catch the cancellation")
}

func TestRestore_ReArmsPendingTimers(t *testing.T) {
	service, storage, sender := newPostFixture()

	// A post left over from a previous run, already due.
	_, err := storage.Create(context.Background(), &entity.ScheduledPost{
		ID:        "leftover",
		OwnerID:   1,
		ChannelID: 1,
		Kind:      entity.ContentText,
		Payload:   "hello",
		FireAt:    time.Now().Add(-time.Minute),
		Status:    entity.PostStatusScheduled,
	})
	require.NoError(t, err)

	restored, err := service.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	assert.Eventually(t, func() bool {
		return storage.status("leftover") == entity.PostStatusSent
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sender.sentCount())
}
