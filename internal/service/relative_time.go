package service

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var relativeLabel = regexp.MustCompile(`(\d+)([mhd])`)

// FormatRelativeTime renders elapsed time as "Nm ago", "Nh ago" or "Nd ago".
func FormatRelativeTime(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	switch {
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed/(24*time.Hour)))
	}
}

// ParseRelativeTime converts a label back to minutes. Unrecognised input yields 0.
func ParseRelativeTime(label string) int {
	match := relativeLabel.FindStringSubmatch(label)
	if match == nil {
		return 0
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	switch match[2] {
	case "m":
		return value
	case "h":
		return value * 60
	case "d":
		return value * 1440
	}
	return 0
}
