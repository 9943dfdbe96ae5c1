// Package reports aggregates the ledger into daily and monthly summaries and
// renders spreadsheet exports.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
)

const summaryCacheKey = "reports:summary"

// Summarizer is the slice of ledger aggregation the report service uses.
type Summarizer interface {
	SummaryByDay(ctx context.Context, from, to time.Time) ([]ledger.SummaryRow, error)
	SummaryByMonth(ctx context.Context, from, to time.Time) ([]ledger.SummaryRow, error)
}

// Summary bundles the two aggregation windows returned to clients.
type Summary struct {
	Daily       []ledger.SummaryRow `json:"daily"`
	Monthly     []ledger.SummaryRow `json:"monthly"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type Service struct {
	ledger Summarizer
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	// DailyWindow and MonthlyWindow bound how far back each aggregation
	// reaches. Zero means everything since the first entry.
	DailyWindow   time.Duration
	MonthlyWindow time.Duration
}

func NewService(l Summarizer, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:        l,
		cache:         cache,
		ttl:           ttl,
		logger:        logger,
		DailyWindow:   90 * 24 * time.Hour,
		MonthlyWindow: 2 * 365 * 24 * time.Hour,
	}
}

// Summary returns the cached aggregation, recomputing on a miss. Both windows
// are derived concurrently; a failure in either aborts the whole computation.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, summaryCacheKey).Bytes()
		if err == nil {
			var cached Summary
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("summary cache read failed", "error", err)
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the summary and replaces the cached copy.
func (s *Service) Refresh(ctx context.Context) (Summary, error) {
	now := time.Now().UTC()
	out := Summary{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.ledger.SummaryByDay(gctx, windowStart(now, s.DailyWindow), now)
		if err != nil {
			return fmt.Errorf("daily summary: %w", err)
		}
		out.Daily = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.ledger.SummaryByMonth(gctx, windowStart(now, s.MonthlyWindow), now)
		if err != nil {
			return fmt.Errorf("monthly summary: %w", err)
		}
		out.Monthly = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	if s.cache != nil {
		raw, err := json.Marshal(out)
		if err == nil {
			err = s.cache.Set(ctx, summaryCacheKey, raw, s.ttl).Err()
		}
		if err != nil {
			s.logger.Warn("summary cache write failed", "error", err)
		}
	}
	return out, nil
}

func windowStart(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return now.Add(-window)
}
