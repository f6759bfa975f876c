package models

import (
	"fmt"
	"strings"
	"time"
)

// Counter key formats. Keys are calendar-aligned in UTC: one key per user per
// day and one per user per hour, each expiring with its window. Calendar
// alignment is simpler than a rolling window and is enough to bound abuse.
const (
	dailyKeyFormat  = "rate_limit:daily:%s:%s"
	hourlyKeyFormat = "rate_limit:hourly:%s:%s"

	DailyWindow  = 24 * time.Hour
	HourlyWindow = time.Hour
)

// DailyKey builds the daily counter key for a user at the given instant.
func DailyKey(userID string, now time.Time) string {
	return fmt.Sprintf(dailyKeyFormat, SanitizeKeySegment(userID), now.UTC().Format("2006-01-02"))
}

// HourlyKey builds the hourly counter key for a user at the given instant.
func HourlyKey(userID string, now time.Time) string {
	return fmt.Sprintf(hourlyKeyFormat, SanitizeKeySegment(userID), now.UTC().Format("2006010215"))
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers containing
// ':' could manipulate adjacent rate limit buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
