package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	scanConfigFile string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "thetascan",
	Short: "Cash-secured put scanner",
	Long: `thetascan - cash-secured put 스캐너

재무 건전성(Piotroski F / Altman Z) 게이트를 통과한 종목만 전략에 넣고,
전략별 추천을 심볼당 최고 신뢰도로 골라 저장합니다.

Usage:
  go run ./cmd/thetascan [command]

Examples:
  go run ./cmd/thetascan migrate up
  go run ./cmd/thetascan refresh
  go run ./cmd/thetascan scan --symbols AAPL,MSFT --dry-run
  go run ./cmd/thetascan scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scanConfigFile, "scan-config", "", "scan thresholds YAML (default: SCAN_CONFIG_PATH or built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
