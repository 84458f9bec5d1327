package service

import (
	"context"
	"errors"
	"time"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"gorm.io/gorm"
)

type TariffStorage interface {
	Upsert(ctx context.Context, tariff *entity.Tariff) (*entity.Tariff, error)
	Get(ctx context.Context, key string) (*entity.Tariff, error)
	GetAll(ctx context.Context) ([]entity.Tariff, error)
	Update(ctx context.Context, tariff *entity.Tariff) (*entity.Tariff, error)
	Delete(ctx context.Context, key string) error
}

type TariffService struct {
	tariffStorage TariffStorage
}

// UpdateTariffInput carries the admin-editable tariff fields; nil means the
// field is left untouched.
type UpdateTariffInput struct {
	Price             *int
	PostsPerDay       *entity.Limit
	ChannelsLimit     *entity.Limit
	DurationDays      *int
	PaymentURL        *string
	GatingChannelID   *int64
	GatingChannelName *string
	InviteTTL         *time.Duration
}

func NewTariffService(tariffStorage TariffStorage) *TariffService {
	return &TariffService{
		tariffStorage: tariffStorage,
	}
}

// Seed writes the configured plan catalogue, keeping records that the admin
// already edited.
func (s *TariffService) Seed(ctx context.Context, tariffs []entity.Tariff) error {
	for i := range tariffs {
		_, err := s.tariffStorage.Get(ctx, tariffs[i].Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err = s.tariffStorage.Upsert(ctx, &tariffs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Create adds a new plan to the catalogue. Keys are unique, an occupied key
// is rejected instead of silently replacing the existing plan.
func (s *TariffService) Create(ctx context.Context, tariff *entity.Tariff) (*entity.Tariff, error) {
	_, err := s.tariffStorage.Get(ctx, tariff.Key)
	if err == nil {
		return nil, errorz.TariffExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.tariffStorage.Upsert(ctx, tariff)
}

// Delete removes a plan from the catalogue. Existing subscriptions keep their
// key and simply fail to resolve the plan afterwards.
func (s *TariffService) Delete(ctx context.Context, key string) error {
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	return s.tariffStorage.Delete(ctx, key)
}

func (s *TariffService) Get(ctx context.Context, key string) (*entity.Tariff, error) {
	tariff, err := s.tariffStorage.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorz.TariffNotFound
	}
	return tariff, err
}

func (s *TariffService) GetAll(ctx context.Context) ([]entity.Tariff, error) {
	return s.tariffStorage.GetAll(ctx)
}

func (s *TariffService) Update(ctx context.Context, key string, input UpdateTariffInput) (*entity.Tariff, error) {
	tariff, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if input.Price != nil {
		tariff.Price = *input.Price
	}
	if input.PostsPerDay != nil {
		tariff.PostsPerDay = *input.PostsPerDay
	}
	if input.ChannelsLimit != nil {
		tariff.ChannelsLimit = *input.ChannelsLimit
	}
	if input.DurationDays != nil {
		tariff.DurationDays = *input.DurationDays
	}
	if input.PaymentURL != nil {
		tariff.PaymentURL = *input.PaymentURL
	}
	if input.GatingChannelID != nil {
		tariff.GatingChannelID = *input.GatingChannelID
	}
	if input.GatingChannelName != nil {
		tariff.GatingChannelName = *input.GatingChannelName
	}
	if input.InviteTTL != nil {
		tariff.InviteTTL = *input.InviteTTL
	}

	return s.tariffStorage.Update(ctx, tariff)
}
