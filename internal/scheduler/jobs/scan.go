package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/thetascan/internal/brain"
	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// ScanRunner is satisfied by *brain.Orchestrator
type ScanRunner interface {
	Run(ctx context.Context, opts brain.RunOptions) (*contracts.ScanRun, error)
}

// ScanJob runs one full scan over the resolved universe
type ScanJob struct {
	runner   ScanRunner
	schedule string
	logger   *logger.Logger
}

// NewScanJob creates a new scan job
func NewScanJob(runner ScanRunner, schedule string, log *logger.Logger) *ScanJob {
	return &ScanJob{runner: runner, schedule: schedule, logger: log.Module("job.scan")}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "scan"
}

// Schedule returns the cron schedule
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run executes the scan. A Failed run is returned as an error so the scheduler retries it.
func (j *ScanJob) Run(ctx context.Context) error {
	run, err := j.runner.Run(ctx, brain.RunOptions{})
	if err != nil {
		return fmt.Errorf("scheduled scan failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":          run.ID,
		"status":          run.Status,
		"symbols":         run.SymbolsScanned,
		"recommendations": run.RecommendationsGenerated,
	}).Info("Scheduled scan finished")
	return nil
}
