// Package jobs holds the background maintenance tasks. All of them refresh
// derived caches; none of them writes ledger or job state, so a stalled
// worker never threatens correctness.
package jobs

import "github.com/hibiken/asynq"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsRefresh recomputes the cached daily/monthly summary.
	TaskReportsRefresh = "reports:refresh_daily"
	// TaskCommissionWarm precomputes commission status for active staff.
	TaskCommissionWarm = "commission:warm_cache"
)

// NewReportsRefreshTask constructs the summary refresh task.
func NewReportsRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskReportsRefresh, nil)
}

// NewCommissionWarmTask constructs the cache warm task.
func NewCommissionWarmTask() *asynq.Task {
	return asynq.NewTask(TaskCommissionWarm, nil)
}
