package entity

import "time"

type User struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Username  string
	FirstName string
	Banned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
