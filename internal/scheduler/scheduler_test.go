package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	calls    int32
	failures int32 // 앞의 N번은 실패
	block    chan struct{}
	panics   bool
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if j.panics {
		panic("boom")
	}
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newJob(name string) *fakeJob {
	return &fakeJob{name: name, schedule: "0 0 3 * * *"}
}

func TestAddJob(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(newJob("b")))
	require.NoError(t, s.AddJob(newJob("a")))
	assert.Error(t, s.AddJob(newJob("a")), "duplicate name")

	bad := newJob("bad")
	bad.schedule = "not a cron"
	assert.Error(t, s.AddJob(bad))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.AddJob(newJob("a")))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
	assert.Error(t, s.RunJob("a"))
}

func TestRunJobSync_RetriesUntilSuccess(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(3, time.Millisecond))
	job := newJob("flaky")
	job.failures = 2
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJobSync(context.Background(), "flaky"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
}

func TestRunJobSync_GivesUp(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(1, time.Millisecond))
	job := newJob("broken")
	job.failures = 10
	require.NoError(t, s.AddJob(job))

	err := s.RunJobSync(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&job.calls))

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobSync_RecoversPanic(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(0, 0))
	job := newJob("panicky")
	job.panics = true
	require.NoError(t, s.AddJob(job))

	err := s.RunJobSync(context.Background(), "panicky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRunJobSync_NoRetryAfterCancel(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(5, time.Hour))
	job := newJob("slow")
	job.block = make(chan struct{})
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunJobSync(ctx, "slow")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))
}

func TestRunJob_SkipsOverlap(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(0, 0))
	job := newJob("long")
	job.block = make(chan struct{})
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("long"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.calls) == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.RunJob("long"), ErrJobRunning)
	assert.ErrorIs(t, s.RunJobSync(context.Background(), "long"), ErrJobRunning)
	assert.True(t, s.GetJobStats()["long"].Running)

	close(job.block)
	require.Eventually(t, func() bool { return !s.GetJobStats()["long"].Running }, time.Second, 5*time.Millisecond)
}

func TestStop_CancelsRunningJobs(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(3, time.Hour))
	job := newJob("long")
	job.block = make(chan struct{})
	require.NoError(t, s.AddJob(job))

	s.Start()
	require.NoError(t, s.RunJob("long"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.calls) == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}
