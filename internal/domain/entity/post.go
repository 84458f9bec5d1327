package entity

import "time"

type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentPhoto    ContentKind = "photo"
	ContentVideo    ContentKind = "video"
	ContentDocument ContentKind = "document"
)

type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusSent      PostStatus = "sent"
	PostStatusCancelled PostStatus = "cancelled"
	PostStatusError     PostStatus = "error"
)

// ScheduledPost is a composed post waiting for its fire time. Cancelled posts
// stay as tombstones; ids are uuids and are never reused.
//
// Payload holds the raw text for ContentText and the telegram file id for
// media kinds. The scheduler does not interpret it, it only forwards it to
// the sender.
type ScheduledPost struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	OwnerID    int64  `gorm:"not null;index"`
	ChannelID  uint   `gorm:"not null"`
	Channel    Channel
	Kind       ContentKind `gorm:"not null"`
	Payload    string
	Caption    string
	FireAt     time.Time  `gorm:"not null"`
	Status     PostStatus `gorm:"not null;index"`
	FailReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
