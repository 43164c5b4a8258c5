package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRelativeTime(t *testing.T) {
	cases := map[time.Duration]string{
		0:                             "0m ago",
		-time.Minute:                  "0m ago",
		59 * time.Minute:              "59m ago",
		time.Hour:                     "1h ago",
		23*time.Hour + 59*time.Minute: "23h ago",
		24 * time.Hour:                "1d ago",
		10*24*time.Hour + time.Hour:   "10d ago",
	}
	for elapsed, want := range cases {
		assert.Equal(t, want, FormatRelativeTime(elapsed), elapsed.String())
	}
}

func TestParseRelativeTime(t *testing.T) {
	cases := map[string]int{
		"5m ago":   5,
		"2h ago":   120,
		"3d ago":   4320,
		"45m":      45,
		"just now": 0,
		"":         0,
		"7w ago":   0,
	}
	for label, want := range cases {
		assert.Equal(t, want, ParseRelativeTime(label), label)
	}
}

func TestRelativeTimeRoundTrip(t *testing.T) {
	for _, elapsed := range []time.Duration{17 * time.Minute, 5 * time.Hour, 4 * 24 * time.Hour} {
		assert.Equal(t, int(elapsed/time.Minute), ParseRelativeTime(FormatRelativeTime(elapsed)))
	}
}
