package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// PgRepository stores achievement events in Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// LatestAchievementDate returns the most recent event date for the user.
// The second return is false when the user has never achieved.
func (r *PgRepository) LatestAchievementDate(ctx context.Context, username string) (time.Time, bool, error) {
	const q = `SELECT event_date FROM achievement_events WHERE username = $1 ORDER BY event_date DESC LIMIT 1`

	var d time.Time
	err := r.pool.QueryRow(ctx, q, username).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest achievement date: %w", err)
	}
	return d, true, nil
}

// InsertAchievement records an event; the (username, event_date) unique
// constraint makes concurrent evaluation idempotent. Returns false when a row
// for that day already existed.
func (r *PgRepository) InsertAchievement(ctx context.Context, a Achievement) (bool, error) {
	const q = `
		INSERT INTO achievement_events (username, event_date, amount, status, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (username, event_date) DO NOTHING`

	tag, err := r.pool.Exec(ctx, q, a.Username, a.Date, a.Amount, a.Status)
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ListAchievements(ctx context.Context, username string) ([]Achievement, error) {
	const q = `
		SELECT username, event_date, amount, status, created_at
		FROM achievement_events
		WHERE username = $1
		ORDER BY event_date DESC`

	rows, err := r.pool.Query(ctx, q, username)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var out []Achievement
	for rows.Next() {
		var a Achievement
		if err := rows.Scan(&a.Username, &a.Date, &a.Amount, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkPaid flips a pending event to paid. Paying an already paid event is an
// invalid transition; an unknown event is not found.
func (r *PgRepository) MarkPaid(ctx context.Context, username string, date time.Time) error {
	const q = `
		UPDATE achievement_events SET status = $3
		WHERE username = $1 AND event_date = $2 AND status = $4`

	tag, err := r.pool.Exec(ctx, q, username, date, AchievementPaid, AchievementPending)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var status AchievementStatus
	err = r.pool.QueryRow(ctx,
		`SELECT status FROM achievement_events WHERE username = $1 AND event_date = $2`,
		username, date).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("achievement %s/%s: %w", username, date.Format("2006-01-02"), shared.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("mark paid lookup: %w", err)
	}
	return fmt.Errorf("achievement already %s: %w", status, shared.ErrInvalidTransition)
}
