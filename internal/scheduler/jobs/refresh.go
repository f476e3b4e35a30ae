package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// BulkRefresher is satisfied by *refresh.Refresher
type BulkRefresher interface {
	RefreshAll(ctx context.Context) (contracts.BulkRefreshResult, error)
}

// RefreshJob re-evaluates financial health for the whole fundamentals dataset
type RefreshJob struct {
	refresher BulkRefresher
	schedule  string
	logger    *logger.Logger
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(refresher BulkRefresher, schedule string, log *logger.Logger) *RefreshJob {
	return &RefreshJob{refresher: refresher, schedule: schedule, logger: log.Module("job.refresh")}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "health_refresh"
}

// Schedule returns the cron schedule
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the bulk refresh
func (j *RefreshJob) Run(ctx context.Context) error {
	result, err := j.refresher.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("health refresh failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"total":     result.Total,
		"healthy":   result.Healthy,
		"unhealthy": result.Unhealthy,
		"failed":    result.Failed,
		"elapsed":   result.Elapsed,
	}).Info("Scheduled health refresh finished")
	return nil
}
