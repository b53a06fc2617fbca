package utils

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form used by the provider and by every
// date the viewer accepts.
const DateLayout = "2006-01-02"

func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(dateStr))
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// IsISODate reports whether s is a real YYYY-MM-DD calendar date. Because
// the layout is zero-padded, such strings also order correctly as text.
func IsISODate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
