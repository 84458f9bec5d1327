package postgres

import (
	"context"

	"github.com/zenpost/planner-bot/internal/domain/entity"
	"gorm.io/gorm"
)

type ChannelStorage struct {
	db *gorm.DB
}

func NewChannelStorage(db *gorm.DB) *ChannelStorage {
	return &ChannelStorage{
		db: db,
	}
}

// Create is a function that creates a new channel in the database.
func (s *ChannelStorage) Create(ctx context.Context, channel *entity.Channel) (*entity.Channel, error) {
	err := s.db.WithContext(ctx).Create(&channel).Error
	return channel, err
}

// Get is a function that gets a channel from the database by id.
func (s *ChannelStorage) Get(ctx context.Context, id uint) (*entity.Channel, error) {
	var channel entity.Channel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error
	return &channel, err
}

// GetByOwner is a function that gets all channels owned by a user.
func (s *ChannelStorage) GetByOwner(ctx context.Context, ownerID int64) ([]entity.Channel, error) {
	var channels []entity.Channel
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&channels).Error
	return channels, err
}

// CountByOwner is a function that counts the channels owned by a user.
func (s *ChannelStorage) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Channel{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// Delete removes an owned channel from the database.
func (s *ChannelStorage) Delete(ctx context.Context, id uint, ownerID int64) error {
	return s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&entity.Channel{}).Error
}
