package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health [symbol]",
	Short: "종목 재무 건전성 평가",
	Long: `한 종목의 F-Score / Z-Score를 계산하고 게이트 통과 여부를 출력합니다.

--stored이면 계산 대신 마지막으로 저장된 레코드를 보여줍니다.

Example:
  go run ./cmd/thetascan health AAPL
  go run ./cmd/thetascan health AAPL --stored`,
	Args: cobra.ExactArgs(1),
	RunE: runHealth,
}

var healthStored bool

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().BoolVar(&healthStored, "stored", false, "show the stored record instead of evaluating")
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eval := a.evaluator()

	if healthStored {
		stored, err := a.healthRepo().GetBySymbol(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load health record: %w", err)
		}
		if stored == nil {
			fmt.Printf("No stored health record for %s\n", symbol)
			return nil
		}
		printHeader("Stored health", fmt.Sprintf("Evaluated : %s", stored.EvaluatedAt.Format("2006-01-02 15:04:05")))
		printHealth(*stored, eval.MeetsRequirements(*stored))
		return nil
	}

	m, err := eval.Evaluate(ctx, symbol)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", symbol, err)
	}

	cfg := eval.Config()
	printHeader("Financial health", fmt.Sprintf("Gate      : F ≥ %d, Z ≥ %.2f", cfg.MinFScore, cfg.MinZScore))
	printHealth(m, eval.MeetsRequirements(m))
	return nil
}
