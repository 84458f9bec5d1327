package postgres

import (
	"context"

	"github.com/zenpost/planner-bot/internal/domain/entity"
	"gorm.io/gorm"
)

type PostStorage struct {
	db *gorm.DB
}

func NewPostStorage(db *gorm.DB) *PostStorage {
	return &PostStorage{
		db: db,
	}
}

// Create is a function that creates a new scheduled post in the database.
func (s *PostStorage) Create(ctx context.Context, post *entity.ScheduledPost) (*entity.ScheduledPost, error) {
	err := s.db.WithContext(ctx).Create(&post).Error
	return post, err
}

// Get is a function that gets a scheduled post from the database by id.
func (s *PostStorage) Get(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	var post entity.ScheduledPost
	err := s.db.WithContext(ctx).Preload("Channel").Where("id = ?", id).First(&post).Error
	return &post, err
}

// Update is a function that updates a scheduled post in the database.
func (s *PostStorage) Update(ctx context.Context, post *entity.ScheduledPost) (*entity.ScheduledPost, error) {
	err := s.db.WithContext(ctx).Omit("Channel").Save(&post).Error
	return post, err
}

// GetByOwner returns all posts of a user, newest fire time first.
func (s *PostStorage) GetByOwner(ctx context.Context, ownerID int64) ([]entity.ScheduledPost, error) {
	var posts []entity.ScheduledPost
	err := s.db.WithContext(ctx).Preload("Channel").
		Where("owner_id = ?", ownerID).Order("fire_at DESC").Find(&posts).Error
	return posts, err
}

// GetPendingByOwner returns the not yet fired posts of a user.
func (s *PostStorage) GetPendingByOwner(ctx context.Context, ownerID int64) ([]entity.ScheduledPost, error) {
	var posts []entity.ScheduledPost
	err := s.db.WithContext(ctx).Preload("Channel").
		Where("owner_id = ? AND status = ?", ownerID, entity.PostStatusScheduled).
		Order("fire_at").Find(&posts).Error
	return posts, err
}

// GetAllPending returns every post still waiting for delivery. Used to re-arm
// timers after a restart.
func (s *PostStorage) GetAllPending(ctx context.Context) ([]entity.ScheduledPost, error) {
	var posts []entity.ScheduledPost
	err := s.db.WithContext(ctx).Preload("Channel").
		Where("status = ?", entity.PostStatusScheduled).Order("fire_at").Find(&posts).Error
	return posts, err
}
