package service

import (
	"context"

	"github.com/zenpost/planner-bot/internal/domain/entity"
)

type ChannelStorage interface {
	Create(ctx context.Context, channel *entity.Channel) (*entity.Channel, error)
	Get(ctx context.Context, id uint) (*entity.Channel, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]entity.Channel, error)
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
	Delete(ctx context.Context, id uint, ownerID int64) error
}

type ChannelService struct {
	channelStorage ChannelStorage
}

func NewChannelService(channelStorage ChannelStorage) *ChannelService {
	return &ChannelService{
		channelStorage: channelStorage,
	}
}

func (s *ChannelService) Add(ctx context.Context, ownerID int64, telegramID, displayName string) (*entity.Channel, error) {
	if displayName == "" {
		displayName = telegramID
	}
	return s.channelStorage.Create(ctx, &entity.Channel{
		TelegramID:  telegramID,
		OwnerID:     ownerID,
		DisplayName: displayName,
	})
}

func (s *ChannelService) Get(ctx context.Context, id uint) (*entity.Channel, error) {
	return s.channelStorage.Get(ctx, id)
}

func (s *ChannelService) GetByOwner(ctx context.Context, ownerID int64) ([]entity.Channel, error) {
	return s.channelStorage.GetByOwner(ctx, ownerID)
}

func (s *ChannelService) Remove(ctx context.Context, id uint, ownerID int64) error {
	return s.channelStorage.Delete(ctx, id, ownerID)
}
