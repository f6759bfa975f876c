// Package models holds the rate limit value objects and counter key builders.
package models

// RemainingRequests is the read-only usage view for one user. Remaining
// values are clamped to zero, never negative.
type RemainingRequests struct {
	DailyRemaining  int `json:"daily_remaining"`
	HourlyRemaining int `json:"hourly_remaining"`
	DailyLimit      int `json:"daily_limit"`
	HourlyLimit     int `json:"hourly_limit"`
}

// Limits are the per-user ceilings enforced by the limiter.
type Limits struct {
	Daily  int
	Hourly int
}

// DefaultLimits mirror the production configuration defaults.
func DefaultLimits() Limits {
	return Limits{Daily: 50, Hourly: 10}
}
