// Package commission tracks rolling per-user sales totals against role-based
// targets. Status is always re-derived from the ledger; only the one-time
// achievement events are persisted.
package commission

import (
	"context"
	"time"
)

// Epoch is the period start for users with no prior achievement.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Status is the derived commission position of one user. It is cached, never
// authoritative: everything here is recomputable from ledger entries.
type Status struct {
	User        string    `json:"user"`
	Role        string    `json:"role"`
	Applicable  bool      `json:"applicable"`
	Total       int64     `json:"total"`
	Target      int64     `json:"target"`
	Percent     int       `json:"percent"`
	PeriodStart time.Time `json:"period_start"`
}

// AchievementStatus enumerates payout states.
type AchievementStatus string

const (
	// AchievementPending awaits payout.
	AchievementPending AchievementStatus = "pending"
	// AchievementPaid is terminal; the transition is one-directional.
	AchievementPaid AchievementStatus = "paid"
)

// Achievement records a target crossing: at most one per user per day.
type Achievement struct {
	Username  string            `json:"user"`
	Date      time.Time         `json:"date"`
	Amount    int64             `json:"amount"`
	Status    AchievementStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// Config sets the role targets and the fixed reward amount.
type Config struct {
	TargetAdmin   int64
	TargetMekanik int64
	Reward        int64
}

// LedgerSums is the slice of ledger reads the engine needs.
type LedgerSums interface {
	SumOutByActorSince(ctx context.Context, actor string, since time.Time) (int64, error)
	SumOutSince(ctx context.Context, since time.Time) (int64, error)
}

// RoleDirectory resolves a username to its role.
type RoleDirectory interface {
	GetRole(ctx context.Context, username string) (string, error)
}

// Repository persists achievement events.
type Repository interface {
	LatestAchievementDate(ctx context.Context, username string) (time.Time, bool, error)
	InsertAchievement(ctx context.Context, a Achievement) (bool, error)
	ListAchievements(ctx context.Context, username string) ([]Achievement, error)
	MarkPaid(ctx context.Context, username string, date time.Time) error
}

// StatusCache stores derived status rows with a TTL.
type StatusCache interface {
	Get(ctx context.Context, username string) (Status, bool, error)
	Set(ctx context.Context, status Status) error
	Invalidate(ctx context.Context, username string) error
}

// AchievementRecorder counts granted achievements for metrics.
type AchievementRecorder interface {
	AchievementGranted()
}
