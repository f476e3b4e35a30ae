package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "최근 스캔 실행 이력",
	Long: `최근 스캔 실행 기록을 최신순으로 출력합니다.

Example:
  go run ./cmd/thetascan runs
  go run ./cmd/thetascan runs --limit 50`,
	RunE: runRuns,
}

var (
	runsLimit  int
	runsSymbol string
)

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs")
	runsCmd.Flags().StringVar(&runsSymbol, "symbol", "", "show active recommendations for a symbol instead")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stores := a.postgresStores()

	if symbols := parseSymbols(runsSymbol); len(symbols) > 0 {
		recs, err := stores.recs.GetBySymbol(ctx, symbols[0], true)
		if err != nil {
			return fmt.Errorf("load recommendations: %w", err)
		}
		printHeader(fmt.Sprintf("Active recommendations: %s", symbols[0]))
		printRecommendations(recs)
		return nil
	}

	runs, err := stores.runs.GetRecent(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}

	printHeader("Recent scan runs")
	if len(runs) == 0 {
		fmt.Println("  (no runs)")
		return nil
	}
	fmt.Printf("  %-24s %-26s %-20s %7s %5s\n", "ID", "STATUS", "STARTED", "SYMBOLS", "RECS")
	for _, r := range runs {
		fmt.Printf("  %-24s %-26s %-20s %7d %5d\n",
			r.ID, statusIcon(r.Status)+" "+string(r.Status), r.StartedAt.Format("2006-01-02 15:04:05"),
			r.SymbolsScanned, r.RecommendationsGenerated)
	}
	return nil
}
