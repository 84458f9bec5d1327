package postgres

import (
	"context"

	"github.com/zenpost/planner-bot/internal/domain/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TariffStorage struct {
	db *gorm.DB
}

func NewTariffStorage(db *gorm.DB) *TariffStorage {
	return &TariffStorage{
		db: db,
	}
}

// Upsert creates or fully replaces a tariff record.
func (s *TariffStorage) Upsert(ctx context.Context, tariff *entity.Tariff) (*entity.Tariff, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&tariff).Error
	return tariff, err
}

// Get is a function that gets a tariff from the database by key.
func (s *TariffStorage) Get(ctx context.Context, key string) (*entity.Tariff, error) {
	var tariff entity.Tariff
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&tariff).Error
	return &tariff, err
}

// GetAll is a function that gets all tariffs from the database.
func (s *TariffStorage) GetAll(ctx context.Context) ([]entity.Tariff, error) {
	var tariffs []entity.Tariff
	err := s.db.WithContext(ctx).Order("price").Find(&tariffs).Error
	return tariffs, err
}

// Delete is a function that deletes a tariff from the database by key.
func (s *TariffStorage) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&entity.Tariff{}).Error
}

// Update is a function that updates a tariff in the database.
func (s *TariffStorage) Update(ctx context.Context, tariff *entity.Tariff) (*entity.Tariff, error) {
	err := s.db.WithContext(ctx).Save(&tariff).Error
	return tariff, err
}
