package commission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// Service derives commission status and grants achievement events.
type Service struct {
	repo    Repository
	ledger  LedgerSums
	roles   RoleDirectory
	cache   StatusCache
	cfg     Config
	logger  *slog.Logger
	metrics AchievementRecorder
}

func NewService(repo Repository, ledger LedgerSums, roles RoleDirectory, cache StatusCache, cfg Config, logger *slog.Logger, metrics AchievementRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, roles: roles, cache: cache, cfg: cfg, logger: logger, metrics: metrics}
}

// Status reports the user's current position. It is a pure read: no ledger
// rows, achievements, or state of any kind are written here.
func (s *Service) Status(ctx context.Context, username string) (Status, error) {
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, username); err == nil && ok {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("commission cache read failed", "user", username, "error", err)
		}
	}

	status, err := s.compute(ctx, username)
	if err != nil {
		return Status{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, status); err != nil {
			s.logger.Warn("commission cache write failed", "user", username, "error", err)
		}
	}
	return status, nil
}

// Evaluate recomputes the user's total and grants an achievement when the
// target is reached. At most one event per user per day can exist; concurrent
// evaluations race harmlessly on the unique constraint.
func (s *Service) Evaluate(ctx context.Context, username string) error {
	status, err := s.compute(ctx, username)
	if err != nil {
		return err
	}
	if !status.Applicable || status.Total < status.Target {
		return nil
	}

	today := truncateToDay(time.Now().UTC())
	inserted, err := s.repo.InsertAchievement(ctx, Achievement{
		Username: username,
		Date:     today,
		Amount:   s.cfg.Reward,
		Status:   AchievementPending,
	})
	if err != nil {
		return err
	}
	if inserted {
		s.logger.Info("achievement granted", "user", username, "date", today.Format("2006-01-02"), "amount", s.cfg.Reward)
		if s.metrics != nil {
			s.metrics.AchievementGranted()
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, username); err != nil {
			s.logger.Warn("commission cache invalidate failed", "user", username, "error", err)
		}
	}
	return nil
}

// Achievements lists the user's achievement events, newest first.
func (s *Service) Achievements(ctx context.Context, username string) ([]Achievement, error) {
	return s.repo.ListAchievements(ctx, username)
}

// MarkPaid settles a pending achievement. date is the event day in
// YYYY-MM-DD form.
func (s *Service) MarkPaid(ctx context.Context, username, date string) error {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return shared.Invalidf("invalid date %q, want YYYY-MM-DD", date)
	}
	if err := s.repo.MarkPaid(ctx, username, day); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, username); err != nil {
			s.logger.Warn("commission cache invalidate failed", "user", username, "error", err)
		}
	}
	return nil
}

func (s *Service) compute(ctx context.Context, username string) (Status, error) {
	role, err := s.roles.GetRole(ctx, username)
	if err != nil {
		return Status{}, err
	}

	status := Status{User: username, Role: role}
	switch role {
	case shared.RoleAdmin:
		status.Target = s.cfg.TargetAdmin
	case shared.RoleMekanik:
		status.Target = s.cfg.TargetMekanik
	default:
		return status, nil
	}
	status.Applicable = true

	status.PeriodStart = Epoch
	if last, ok, err := s.repo.LatestAchievementDate(ctx, username); err != nil {
		return Status{}, err
	} else if ok {
		// Counting restarts the day after the last achievement.
		status.PeriodStart = truncateToDay(last).AddDate(0, 0, 1)
	}

	switch role {
	case shared.RoleMekanik:
		status.Total, err = s.ledger.SumOutByActorSince(ctx, username, status.PeriodStart)
	case shared.RoleAdmin:
		status.Total, err = s.ledger.SumOutSince(ctx, status.PeriodStart)
	}
	if err != nil {
		return Status{}, fmt.Errorf("commission total for %s: %w", username, err)
	}

	if status.Target > 0 {
		pct := status.Total * 100 / status.Target
		if pct > 100 {
			pct = 100
		}
		status.Percent = int(pct)
	}
	return status, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
