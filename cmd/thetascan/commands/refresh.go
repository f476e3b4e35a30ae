package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/thetascan/internal/refresh"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "재무 건전성 일괄 갱신",
	Long: `펀더멘털 데이터셋 전체의 F-Score / Z-Score를 다시 계산해 저장합니다.

--if-stale이면 저장된 레코드가 비어 있거나 stale_after보다 오래된 경우에만 실행.

Example:
  go run ./cmd/thetascan refresh
  go run ./cmd/thetascan refresh --if-stale`,
	RunE: runRefresh,
}

var refreshIfStale bool

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().BoolVar(&refreshIfStale, "if-stale", false, "skip when health records are fresh")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if refreshIfStale {
		policy := refresh.NewPolicy(a.healthRepo(), a.scanCfg.Refresh.StaleAfter)
		required, reason, err := policy.RefreshRequired(ctx)
		if err != nil {
			return fmt.Errorf("check staleness: %w", err)
		}
		if !required {
			fmt.Println("Health records are fresh, nothing to do")
			return nil
		}
		fmt.Printf("Refresh required: %s\n", reason)
	}

	printHeader("thetascan refresh",
		fmt.Sprintf("Batch size : %d", a.scanCfg.Refresh.BatchSize),
		fmt.Sprintf("Min F      : %d", a.scanCfg.Refresh.HealthyMinFScore),
	)

	result, err := a.refresher(a.evaluator()).RefreshAll(ctx)
	fmt.Println()
	fmt.Printf("  Total     : %d\n", result.Total)
	fmt.Printf("  Healthy   : %d\n", result.Healthy)
	fmt.Printf("  Unhealthy : %d\n", result.Unhealthy)
	fmt.Printf("  Failed    : %d\n", result.Failed)
	fmt.Printf("  Elapsed   : %s\n", result.Elapsed)
	fmt.Println(ruleHeavy)
	return err
}
