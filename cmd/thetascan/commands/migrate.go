package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/thetascan/pkg/config"
	"github.com/wonny/thetascan/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 마이그레이션",
	Long: `내장된 SQL 마이그레이션을 적용하거나 되돌립니다.

Subcommands:
  up    - 모든 마이그레이션 적용
  down  - N단계 롤백

Example:
  go run ./cmd/thetascan migrate up
  go run ./cmd/thetascan migrate down --steps 1`,
}

var (
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "마이그레이션 적용",
		RunE:  runMigrateUp,
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "마이그레이션 롤백",
		RunE:  runMigrateDown,
	}

	migrateSteps int
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	version, err := database.Migrate(cfg.Database.URL)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Database at version %d\n", version)
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	if migrateSteps <= 0 {
		return fmt.Errorf("--steps must be > 0")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := database.MigrateDown(cfg.Database.URL, migrateSteps); err != nil {
		return err
	}
	fmt.Printf("✅ Rolled back %d migration(s)\n", migrateSteps)
	return nil
}
