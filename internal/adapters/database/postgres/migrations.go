package postgres

import "github.com/zenpost/planner-bot/internal/domain/entity"

// Migrations is a list of all gorm migrations for the database.
var Migrations = []interface{}{
	&entity.User{},
	&entity.Channel{},
	&entity.Tariff{},
	&entity.Subscription{},
	&entity.ScheduledPost{},
}
