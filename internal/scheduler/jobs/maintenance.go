package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/thetascan/pkg/logger"
)

// StaleRecommendationDeleter is satisfied by every RecommendationRepository
type StaleRecommendationDeleter interface {
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// CleanupJob deletes recommendations older than the retention window
type CleanupJob struct {
	recs     StaleRecommendationDeleter
	maxAge   time.Duration
	schedule string
	logger   *logger.Logger
}

// NewCleanupJob creates a new recommendation cleanup job
func NewCleanupJob(recs StaleRecommendationDeleter, maxAge time.Duration, schedule string, log *logger.Logger) *CleanupJob {
	return &CleanupJob{recs: recs, maxAge: maxAge, schedule: schedule, logger: log.Module("job.cleanup")}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "recommendation_cleanup"
}

// Schedule returns the cron schedule
func (j *CleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cleanup
func (j *CleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled recommendation cleanup")

	count, err := j.recs.DeleteStale(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("recommendation cleanup failed: %w", err)
	}

	if count > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": count,
			"max_age": j.maxAge,
		}).Info("Recommendation cleanup completed")
	}
	return nil
}
