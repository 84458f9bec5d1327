package entity

import "time"

// Channel is a posting destination registered by a user. The telegram id is
// unique per owner, not globally: two users may register the same channel.
type Channel struct {
	ID          uint   `gorm:"primaryKey"`
	TelegramID  string `gorm:"not null;uniqueIndex:idx_owner_channel"`
	OwnerID     int64  `gorm:"not null;uniqueIndex:idx_owner_channel;index"`
	DisplayName string `gorm:"not null"`
	CreatedAt   time.Time
}
