package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bengkelmitra/bengkelmitra/internal/commission"
	"github.com/bengkelmitra/bengkelmitra/internal/reports"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// StaffLister enumerates usernames eligible for commission.
type StaffLister interface {
	ListUsernamesByRoles(ctx context.Context, roles ...string) ([]string, error)
}

// ReportsRefreshJob recomputes the cached summary.
type ReportsRefreshJob struct {
	reports *reports.Service
	logger  *slog.Logger
}

func NewReportsRefreshJob(service *reports.Service, logger *slog.Logger) *ReportsRefreshJob {
	return &ReportsRefreshJob{reports: service, logger: logger}
}

func (j *ReportsRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	sum, err := j.reports.Refresh(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("summary refreshed", "daily_rows", len(sum.Daily), "monthly_rows", len(sum.Monthly))
	return nil
}

// CommissionWarmJob precomputes commission status for every admin and
// mekanik so the first dashboard hit of the day is a cache read.
type CommissionWarmJob struct {
	commission *commission.Service
	staff      StaffLister
	logger     *slog.Logger
}

func NewCommissionWarmJob(service *commission.Service, staff StaffLister, logger *slog.Logger) *CommissionWarmJob {
	return &CommissionWarmJob{commission: service, staff: staff, logger: logger}
}

func (j *CommissionWarmJob) Handle(ctx context.Context, _ *asynq.Task) error {
	names, err := j.staff.ListUsernamesByRoles(ctx, shared.RoleAdmin, shared.RoleMekanik)
	if err != nil {
		return err
	}
	warmed := 0
	for _, name := range names {
		if _, err := j.commission.Status(ctx, name); err != nil {
			j.logger.Warn("commission warm failed", "user", name, "error", err)
			continue
		}
		warmed++
	}
	j.logger.Info("commission cache warmed", "users", warmed)
	return nil
}
