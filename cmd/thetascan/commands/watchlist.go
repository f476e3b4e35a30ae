package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/thetascan/internal/store"
)

// watchlistCmd represents the watchlist command
var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "관심 종목 관리",
	Long: `디스커버리가 꺼져 있거나 비었을 때 쓰는 관심 종목 목록을 관리합니다.

Example:
  go run ./cmd/thetascan watchlist list
  go run ./cmd/thetascan watchlist add KO --note "dividend"
  go run ./cmd/thetascan watchlist remove KO`,
}

var (
	watchlistListCmd = &cobra.Command{
		Use:   "list",
		Short: "목록 조회",
		RunE:  runWatchlistList,
	}

	watchlistAddCmd = &cobra.Command{
		Use:   "add [symbol...]",
		Short: "종목 추가",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatchlistAdd,
	}

	watchlistRemoveCmd = &cobra.Command{
		Use:   "remove [symbol...]",
		Short: "종목 삭제",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatchlistRemove,
	}

	watchlistNote string
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)

	watchlistAddCmd.Flags().StringVar(&watchlistNote, "note", "", "free-form note")
}

func withWatchlist(fn func(ctx context.Context, repo *store.WatchlistRepository) error) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, store.NewWatchlistRepository(a.db.Pool))
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	return withWatchlist(func(ctx context.Context, repo *store.WatchlistRepository) error {
		symbols, err := repo.ListSymbols(ctx)
		if err != nil {
			return err
		}
		if len(symbols) == 0 {
			fmt.Println("Watchlist is empty")
			return nil
		}
		fmt.Printf("Watchlist (%d): %s\n", len(symbols), strings.Join(symbols, ", "))
		return nil
	})
}

func runWatchlistAdd(cmd *cobra.Command, args []string) error {
	return withWatchlist(func(ctx context.Context, repo *store.WatchlistRepository) error {
		for _, s := range parseSymbols(strings.Join(args, ",")) {
			if err := repo.Add(ctx, s, watchlistNote); err != nil {
				return err
			}
			fmt.Printf("  + %s\n", s)
		}
		return nil
	})
}

func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	return withWatchlist(func(ctx context.Context, repo *store.WatchlistRepository) error {
		for _, s := range parseSymbols(strings.Join(args, ",")) {
			removed, err := repo.Remove(ctx, s)
			if err != nil {
				return err
			}
			if removed {
				fmt.Printf("  - %s\n", s)
			} else {
				fmt.Printf("  ? %s (not in watchlist)\n", s)
			}
		}
		return nil
	})
}
