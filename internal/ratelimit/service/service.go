// Package service implements the usage limiter: calendar-aligned daily and
// hourly request ceilings per user.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nurture/internal/ratelimit/models"
	"nurture/internal/ratelimit/ports"
	id "nurture/pkg/domain"
)

// Store is the counter backend consumed by the limiter.
type Store = ports.CounterStore

// Limiter answers "may this user issue another request now" and records
// consumption. A store error always propagates to the caller; the limiter
// never fails open.
type Limiter struct {
	store  Store
	limits models.Limits
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithClock overrides the time source used for key alignment. Test hook.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(store Store, limits models.Limits, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if limits.Daily <= 0 || limits.Hourly <= 0 {
		return nil, fmt.Errorf("limits must be positive, got daily=%d hourly=%d", limits.Daily, limits.Hourly)
	}

	l := &Limiter{
		store:  store,
		limits: limits,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// CheckLimit reports whether the user is under both the daily and hourly
// ceiling. Read-only; consumption is recorded separately by IncrementUsage.
func (l *Limiter) CheckLimit(ctx context.Context, userID id.UserID) (bool, error) {
	now := l.now()
	uid := userID.String()

	daily, err := l.store.Get(ctx, models.DailyKey(uid, now))
	if err != nil {
		return false, fmt.Errorf("check daily limit: %w", err)
	}
	if daily >= int64(l.limits.Daily) {
		l.logger.InfoContext(ctx, "daily limit reached", "user_id", uid, "count", daily, "limit", l.limits.Daily)
		return false, nil
	}

	hourly, err := l.store.Get(ctx, models.HourlyKey(uid, now))
	if err != nil {
		return false, fmt.Errorf("check hourly limit: %w", err)
	}
	if hourly >= int64(l.limits.Hourly) {
		l.logger.InfoContext(ctx, "hourly limit reached", "user_id", uid, "count", hourly, "limit", l.limits.Hourly)
		return false, nil
	}

	return true, nil
}

// IncrementUsage charges one request against both windows. Each increment is
// a single atomic store operation, so concurrent requests from the same user
// cannot both pass an exhausted ceiling unobserved.
func (l *Limiter) IncrementUsage(ctx context.Context, userID id.UserID) error {
	now := l.now()
	uid := userID.String()

	if _, err := l.store.Increment(ctx, models.DailyKey(uid, now), models.DailyWindow); err != nil {
		return fmt.Errorf("increment daily usage: %w", err)
	}
	if _, err := l.store.Increment(ctx, models.HourlyKey(uid, now), models.HourlyWindow); err != nil {
		return fmt.Errorf("increment hourly usage: %w", err)
	}
	return nil
}

// GetRemaining returns the user's remaining requests in both windows,
// clamped to zero.
func (l *Limiter) GetRemaining(ctx context.Context, userID id.UserID) (*models.RemainingRequests, error) {
	now := l.now()
	uid := userID.String()

	daily, err := l.store.Get(ctx, models.DailyKey(uid, now))
	if err != nil {
		return nil, fmt.Errorf("get daily usage: %w", err)
	}
	hourly, err := l.store.Get(ctx, models.HourlyKey(uid, now))
	if err != nil {
		return nil, fmt.Errorf("get hourly usage: %w", err)
	}

	return &models.RemainingRequests{
		DailyRemaining:  clamp(l.limits.Daily - int(daily)),
		HourlyRemaining: clamp(l.limits.Hourly - int(hourly)),
		DailyLimit:      l.limits.Daily,
		HourlyLimit:     l.limits.Hourly,
	}, nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
