package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wonny/thetascan/internal/api"
	"github.com/wonny/thetascan/internal/scheduler"
	"github.com/wonny/thetascan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작 (/metrics, /healthz 포함)
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/thetascan scheduler start
  go run ./cmd/thetascan scheduler list
  go run ./cmd/thetascan scheduler run health_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (scan config의 schedule 블록):
- scan: 스캔 1회 (기본 평일 16:30)
- health_refresh: 건전성 일괄 갱신 (기본 토요일 06:00)
- recommendation_cleanup: 오래된 추천 삭제 (기본 매일 03:00)

METRICS_ENABLED=true이면 METRICS_PORT에서 ops 서버가 함께 뜹니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== thetascan Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	var server *api.Server
	if a.cfg.MetricsEnabled {
		router := api.NewRouter(api.Deps{
			DB:       a.db.Pool,
			Runs:     a.postgresStores().runs,
			Jobs:     sched,
			Gatherer: prometheus.DefaultGatherer,
		}, a.log)
		server = api.New(a.cfg.MetricsPort, router, a.log)
		go func() {
			if err := server.Start(); err != nil {
				a.log.WithError(err).Error("Ops server stopped")
			}
		}()
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("Ops server shutdown failed")
		}
	}
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-24s %s\n", jobName, stats[jobName].Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	start := time.Now()
	if err := sched.RunJobSync(ctx, jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	fmt.Printf("✅ Job %s completed in %.2fs\n", jobName, time.Since(start).Seconds())
	return nil
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	orch, err := a.orchestrator(a.postgresStores())
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(1, time.Minute))
	schedule := a.scanCfg.Schedule

	registered := []scheduler.Job{
		jobs.NewScanJob(orch, schedule.ScanCron, a.log),
		jobs.NewRefreshJob(a.refresher(a.evaluator()), schedule.RefreshCron, a.log),
		jobs.NewCleanupJob(a.postgresStores().recs, schedule.RecommendationMaxAge, schedule.MaintenanceCron, a.log),
	}
	for _, job := range registered {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
