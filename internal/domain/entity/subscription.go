package entity

import "time"

// Subscription is the single active plan record of a user. ExpiresAt nil
// means the subscription never expires. HadTrialBefore is the flag that
// prevents a second trial after the one-time grace: without it a user could
// farm trials by letting them lapse.
type Subscription struct {
	UserID         int64  `gorm:"primaryKey;autoIncrement:false"`
	TariffKey      string `gorm:"not null"`
	ActivatedAt    time.Time
	ExpiresAt      *time.Time
	IsTrial        bool
	HadTrialBefore bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the subscription has lapsed at the given moment.
func (s *Subscription) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
