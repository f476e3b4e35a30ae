package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/thetascan/internal/brain"
	"github.com/wonny/thetascan/internal/store"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "스캔 1회 실행",
	Long: `유니버스를 해석하고 건전성 게이트를 통과한 종목에 전략을 돌려 추천을 저장합니다.

Ctrl+C는 협조적 취소: 처리한 심볼까지의 추천은 저장되고 상태는 Cancelled.

Example:
  go run ./cmd/thetascan scan
  go run ./cmd/thetascan scan --symbols AAPL,MSFT
  go run ./cmd/thetascan scan --dry-run`,
	RunE: runScan,
}

var (
	scanSymbols string
	scanDryRun  bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanSymbols, "symbols", "", "comma separated symbols (skips universe resolution)")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "keep runs and recommendations in memory and print them")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stores := a.postgresStores()
	var mem *store.Memory
	if scanDryRun {
		mem = store.NewMemory()
		stores = scanStores{runs: mem.Runs(), recs: mem}
	}

	orch, err := a.orchestrator(stores)
	if err != nil {
		return err
	}

	opts := brain.RunOptions{Symbols: parseSymbols(scanSymbols)}
	mode := "persist"
	if scanDryRun {
		mode = "dry-run"
	}
	printHeader("thetascan scan",
		fmt.Sprintf("Mode      : %s", mode),
		fmt.Sprintf("Config    : %s", a.scanHash[:12]),
		fmt.Sprintf("Symbols   : %s", describeSymbols(opts.Symbols)),
	)

	run, runErr := orch.Run(ctx, opts)
	if run != nil {
		printRun(run)
	}
	if mem != nil {
		fmt.Println()
		printRecommendations(mem.Recommendations())
	}
	return runErr
}

func describeSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return "(resolved universe)"
	}
	return fmt.Sprintf("%v", symbols)
}
