package postgres

import (
	"context"
	"time"

	"github.com/zenpost/planner-bot/internal/domain/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionStorage struct {
	db *gorm.DB
}

func NewSubscriptionStorage(db *gorm.DB) *SubscriptionStorage {
	return &SubscriptionStorage{
		db: db,
	}
}

// Upsert creates or replaces the single subscription record of a user.
func (s *SubscriptionStorage) Upsert(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&sub).Error
	return sub, err
}

// Get is a function that gets a subscription from the database by user id.
func (s *SubscriptionStorage) Get(ctx context.Context, userID int64) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	return &sub, err
}

// Delete removes the subscription record of a user.
func (s *SubscriptionStorage) Delete(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.Subscription{}).Error
}

// GetExpired returns subscriptions lapsed before the given moment.
func (s *SubscriptionStorage) GetExpired(ctx context.Context, before time.Time) ([]entity.Subscription, error) {
	var subs []entity.Subscription
	err := s.db.WithContext(ctx).Where("expires_at IS NOT NULL AND expires_at < ?", before).Find(&subs).Error
	return subs, err
}
