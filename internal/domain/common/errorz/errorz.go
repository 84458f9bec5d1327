package errorz

import "errors"

var (
	InvalidCallbackData = errors.New("invalid callback data")
	InvalidState        = errors.New("invalid state")
	Forbidden           = errors.New("forbidden")

	NoSubscription      = errors.New("no active subscription")
	SubscriptionExpired = errors.New("subscription expired")
	ChannelLimitReached = errors.New("channel limit reached")
	DailyLimitReached   = errors.New("daily post limit reached")

	PostNotFound    = errors.New("post not found")
	LeadTimeTooSoon = errors.New("fire time is too soon")
	TimeInPast      = errors.New("fire time is in the past")

	TariffNotFound = errors.New("tariff not found")
	TariffExists   = errors.New("tariff key already exists")
	NotConfigured  = errors.New("gating channel is not configured")
	BotAccess      = errors.New("bot has no access to the channel")
)
