package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	"gorm.io/gorm"
)

// MinLeadTime is the minimal distance to the fire time accepted from
// free-text input. The explicit "now" path is not subject to it.
const MinLeadTime = time.Minute

type PostStorage interface {
	Create(ctx context.Context, post *entity.ScheduledPost) (*entity.ScheduledPost, error)
	Get(ctx context.Context, id string) (*entity.ScheduledPost, error)
	Update(ctx context.Context, post *entity.ScheduledPost) (*entity.ScheduledPost, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]entity.ScheduledPost, error)
	GetPendingByOwner(ctx context.Context, ownerID int64) ([]entity.ScheduledPost, error)
	GetAllPending(ctx context.Context) ([]entity.ScheduledPost, error)
}

// Sender dispatches a due post to its destination channel. Implemented by the
// telegram adapter; tests plug a fake.
type Sender interface {
	SendPost(post *entity.ScheduledPost) error
}

// ScheduleInput is a complete composed post ready to be scheduled.
type ScheduleInput struct {
	OwnerID   int64
	ChannelID uint
	Kind      entity.ContentKind
	Payload   string
	Caption   string
	FireAt    time.Time
	// FromFreeText marks fire times parsed from user text, which must keep
	// the minimal lead. Menu offsets and the "now" path skip the check.
	FromFreeText bool
}

// PostService owns the scheduled post lifecycle: one single-shot timer per
// pending post, status transitions on fire, cooperative cancellation.
//
// scheduled -> sent       delivery succeeded
// scheduled -> cancelled  user action before fire
// scheduled -> error      dispatch failed, no retry
//
// No transition ever leaves sent, cancelled or error.
type PostService struct {
	posts  PostStorage
	sender Sender
	logger *types.Logger
	now    func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewPostService(posts PostStorage, sender Sender, logger *types.Logger, now func() time.Time) *PostService {
	if now == nil {
		now = time.Now
	}
	return &PostService{
		posts:  posts,
		sender: sender,
		logger: logger,
		now:    now,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule persists the post and arms its delivery timer. FireAt at or before
// now is dispatched with zero delay.
func (s *PostService) Schedule(ctx context.Context, in ScheduleInput) (*entity.ScheduledPost, error) {
	now := s.now()
	if in.FromFreeText {
		if !in.FireAt.After(now) {
			return nil, errorz.TimeInPast
		}
		if in.FireAt.Sub(now) < MinLeadTime {
			return nil, errorz.LeadTimeTooSoon
		}
	}

	post := &entity.ScheduledPost{
		ID:        uuid.New().String(),
		OwnerID:   in.OwnerID,
		ChannelID: in.ChannelID,
		Kind:      in.Kind,
		Payload:   in.Payload,
		Caption:   in.Caption,
		FireAt:    in.FireAt,
		Status:    entity.PostStatusScheduled,
	}

	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.arm(post.ID, post.FireAt)
	s.logger.Infof("(user: %d) scheduled post %s for %s", in.OwnerID, post.ID, in.FireAt)
	return post, nil
}

// Cancel transitions a still scheduled, owned post to cancelled. Cancelling
// anything else is a no-op returning false. The record is the source of
// truth: even if the timer has already woken, its status recheck turns the
// delivery into a no-op.
func (s *PostService) Cancel(ctx context.Context, postID string, ownerID int64) (bool, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if post.OwnerID != ownerID || post.Status != entity.PostStatusScheduled {
		return false, nil
	}

	post.Status = entity.PostStatusCancelled
	if _, err = s.posts.Update(ctx, post); err != nil {
		return false, err
	}

	s.mu.Lock()
	if t, ok := s.timers[postID]; ok {
		t.Stop()
		delete(s.timers, postID)
	}
	s.mu.Unlock()

	s.logger.Infof("(user: %d) cancelled post %s", ownerID, postID)
	return true, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	post, err := s.posts.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorz.PostNotFound
	}
	return post, err
}

func (s *PostService) GetByOwner(ctx context.Context, ownerID int64) ([]entity.ScheduledPost, error) {
	return s.posts.GetByOwner(ctx, ownerID)
}

func (s *PostService) GetPendingByOwner(ctx context.Context, ownerID int64) ([]entity.ScheduledPost, error) {
	return s.posts.GetPendingByOwner(ctx, ownerID)
}

// Restore re-arms a timer for every post that was still scheduled when the
// process stopped. Posts whose fire time already passed fire immediately.
func (s *PostService) Restore(ctx context.Context) (int, error) {
	pending, err := s.posts.GetAllPending(ctx)
	if err != nil {
		return 0, err
	}
	for _, post := range pending {
		s.arm(post.ID, post.FireAt)
	}
	if len(pending) > 0 {
		s.logger.Infof("re-armed %d pending post timers", len(pending))
	}
	return len(pending), nil
}

func (s *PostService) arm(postID string, fireAt time.Time) {
	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if t, ok := s.timers[postID]; ok {
		t.Stop()
	}
	s.timers[postID] = time.AfterFunc(delay, func() {
		s.fire(postID)
	})
	s.mu.Unlock()
}

// fire runs at the post's fire time. It re-reads the record first: a post
// cancelled or removed while the timer slept is silently skipped.
func (s *PostService) fire(postID string) {
	s.mu.Lock()
	delete(s.timers, postID)
	s.mu.Unlock()

	ctx := context.Background()
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Errorf("failed to load due post %s: %v", postID, err)
		}
		return
	}
	if post.Status != entity.PostStatusScheduled {
		return
	}

	if errSend := s.sender.SendPost(post); errSend != nil {
		// A failed send is surfaced via the status, never retried: a retry
		// after a partial failure could publish the post twice.
		post.Status = entity.PostStatusError
		post.FailReason = errSend.Error()
		if _, errUpdate := s.posts.Update(ctx, post); errUpdate != nil {
			s.logger.Errorf("failed to record delivery error for post %s: %v", postID, errUpdate)
		}
		s.logger.Errorf("(user: %d) failed to deliver post %s to channel %d: %v",
			post.OwnerID, postID, post.ChannelID, errSend)
		return
	}

	post.Status = entity.PostStatusSent
	if _, err = s.posts.Update(ctx, post); err != nil {
		s.logger.Errorf("failed to mark post %s as sent: %v", postID, err)
		return
	}
	s.logger.Infof("(user: %d) post %s delivered to channel %d", post.OwnerID, postID, post.ChannelID)
}
