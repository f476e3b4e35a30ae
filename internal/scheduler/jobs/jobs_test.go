package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/internal/brain"
	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/store"
	"github.com/wonny/thetascan/pkg/logger"
)

var (
	_ ScanRunner                 = (*brain.Orchestrator)(nil)
	_ StaleRecommendationDeleter = (*store.Memory)(nil)
)

type fakeRunner struct {
	opts brain.RunOptions
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, opts brain.RunOptions) (*contracts.ScanRun, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	run := contracts.NewScanRun("run_1", time.Now())
	_ = run.Finish(contracts.ScanCompleted, time.Now())
	return run, nil
}

type fakeRefresher struct {
	err error
}

func (f *fakeRefresher) RefreshAll(ctx context.Context) (contracts.BulkRefreshResult, error) {
	return contracts.BulkRefreshResult{Total: 3, Healthy: 2, Unhealthy: 1}, f.err
}

func TestScanJob(t *testing.T) {
	runner := &fakeRunner{}
	job := NewScanJob(runner, "0 30 16 * * 1-5", logger.NewNop())

	assert.Equal(t, "scan", job.Name())
	assert.Equal(t, "0 30 16 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, runner.opts.Symbols, "scheduled scans use the resolved universe")

	runner.err = errors.New("universe unavailable")
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "universe unavailable")
}

func TestRefreshJob(t *testing.T) {
	job := NewRefreshJob(&fakeRefresher{}, "0 0 6 * * 6", logger.NewNop())
	assert.Equal(t, "health_refresh", job.Name())
	require.NoError(t, job.Run(context.Background()))

	failing := NewRefreshJob(&fakeRefresher{err: errors.New("dataset down")}, "0 0 6 * * 6", logger.NewNop())
	assert.Error(t, failing.Run(context.Background()))
}

func TestCleanupJob(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	mem.SetClock(func() time.Time { return now })

	_, err := mem.AddRange(context.Background(), []contracts.Recommendation{
		{Symbol: "OLD", CreatedAt: now.Add(-40 * 24 * time.Hour), IsActive: true},
		{Symbol: "NEW", CreatedAt: now.Add(-time.Hour), IsActive: true},
	})
	require.NoError(t, err)

	job := NewCleanupJob(mem, 30*24*time.Hour, "0 0 3 * * *", logger.NewNop())
	assert.Equal(t, "recommendation_cleanup", job.Name())
	require.NoError(t, job.Run(context.Background()))

	count, err := mem.GetTotalCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
