package entity

import (
	"time"

	"github.com/lib/pq"
)

type Tariff struct {
	Key           string `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	Price         int    // rub, 0 for the trial plan
	PostsPerDay   Limit  `gorm:"type:bigint"`
	ChannelsLimit Limit  `gorm:"type:bigint"`
	DurationDays  int
	PaymentURL    string
	Perks         pq.StringArray `gorm:"type:text[]"`

	// Gating: membership in this channel activates the plan. Zero means the
	// plan is not gated (admin grant only).
	GatingChannelID   int64
	GatingChannelName string
	InviteTTL         time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Gated reports whether the plan is activated through a gating channel.
func (t *Tariff) Gated() bool {
	return t.GatingChannelID != 0
}

// Duration returns the subscription length, zero meaning never expires.
func (t *Tariff) Duration() time.Duration {
	return time.Duration(t.DurationDays) * 24 * time.Hour
}
