package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
)

type fakeTariffStorage struct {
	mu      sync.Mutex
	tariffs map[string]entity.Tariff
}

func newFakeTariffStorage() *fakeTariffStorage {
	return &fakeTariffStorage{tariffs: make(map[string]entity.Tariff)}
}

func (s *fakeTariffStorage) Upsert(_ context.Context, tariff *entity.Tariff) (*entity.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tariffs[tariff.Key] = *tariff
	stored := s.tariffs[tariff.Key]
	return &stored, nil
}

func (s *fakeTariffStorage) Get(_ context.Context, key string) (*entity.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tariff, ok := s.tariffs[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tariff, nil
}

func (s *fakeTariffStorage) GetAll(_ context.Context) ([]entity.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tariffs []entity.Tariff
	for _, tariff := range s.tariffs {
		tariffs = append(tariffs, tariff)
	}
	return tariffs, nil
}

func (s *fakeTariffStorage) Update(_ context.Context, tariff *entity.Tariff) (*entity.Tariff, error) {
	return s.Upsert(context.Background(), tariff)
}

func (s *fakeTariffStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tariffs, key)
	return nil
}

func TestTariffCreate_RejectsOccupiedKey(t *testing.T) {
	storage := newFakeTariffStorage()
	service := NewTariffService(storage)
	ctx := context.Background()

	created, err := service.Create(ctx, &entity.Tariff{Key: "business", Name: "Бизнес", Price: 1490})
	require.NoError(t, err)
	assert.Equal(t, "business", created.Key)

	_, err = service.Create(ctx, &entity.Tariff{Key: "business", Name: "Другой"})
	require.ErrorIs(t, err, errorz.TariffExists)

	kept, err := service.Get(ctx, "business")
	require.NoError(t, err)
	assert.Equal(t, "Бизнес", kept.Name, "a rejected create must not touch the existing plan")
}

func TestTariffDelete(t *testing.T) {
	storage := newFakeTariffStorage()
	service := NewTariffService(storage)
	ctx := context.Background()

	_, err := service.Create(ctx, &entity.Tariff{Key: "business", Name: "Бизнес"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, "business"))
	_, err = service.Get(ctx, "business")
	assert.ErrorIs(t, err, errorz.TariffNotFound)

	err = service.Delete(ctx, "business")
	assert.ErrorIs(t, err, errorz.TariffNotFound)
}
