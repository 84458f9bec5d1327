package validator

import (
	"strconv"
	"strings"

	"github.com/zenpost/planner-bot/internal/domain/entity"
)

// TariffLimit parses an admin-entered quota: a non-negative number or "inf"
// for an unlimited plan.
func TariffLimit(input string) (entity.Limit, bool) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "inf" || input == "unlim" {
		return entity.Unlimited(), true
	}
	n, err := strconv.ParseInt(input, 10, 64)
	if err != nil || n < 0 {
		return entity.Limit{}, false
	}
	return entity.LimitOf(n), true
}

// TariffKey parses an admin-entered plan key: a short lowercase slug used in
// callback data and config references.
func TariffKey(input string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" || len(key) > 32 {
		return "", false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return "", false
		}
	}
	return key, true
}

// PositiveInt parses a strictly positive integer field (price, days).
func PositiveInt(input string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// TelegramID parses a raw numeric chat id, e.g. "-1001234567890".
func TelegramID(input string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
