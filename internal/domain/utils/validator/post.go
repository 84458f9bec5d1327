package validator

import (
	"strings"
	"time"
)

// CustomTimeLayout is the only accepted free-text fire time format,
// e.g. "27.11.2024-19.30".
const CustomTimeLayout = "02.01.2006-15.04"

// ParseCustomTime parses a user-entered fire time in the reference timezone.
// Parsing and the later comparison against now must happen in the same zone;
// mixing zones here is how posts end up firing an offset early or late.
func ParseCustomTime(input string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(CustomTimeLayout, strings.TrimSpace(input), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ChannelID accepts a public @username or a raw -100… channel id.
func ChannelID(input string) bool {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "@") {
		return len(input) > 1 && !strings.ContainsAny(input[1:], " \t\n")
	}
	return strings.HasPrefix(input, "-100") && len(input) > 4
}
