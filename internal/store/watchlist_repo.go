package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WatchlistRepository manages scan.watchlist
type WatchlistRepository struct {
	pool *pgxpool.Pool
}

// NewWatchlistRepository creates a watchlist repository
func NewWatchlistRepository(pool *pgxpool.Pool) *WatchlistRepository {
	return &WatchlistRepository{pool: pool}
}

// ListSymbols returns watchlist symbols in insertion order
func (r *WatchlistRepository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT symbol FROM scan.watchlist ORDER BY added_at ASC, symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return symbols, nil
}

// Add inserts a symbol; existing symbols keep their position and get the new note
func (r *WatchlistRepository) Add(ctx context.Context, symbol, note string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO scan.watchlist (symbol, note) VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET note = EXCLUDED.note
	`, symbol, note)
	if err != nil {
		return fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}
	return nil
}

// Remove deletes a symbol and reports whether it was present
func (r *WatchlistRepository) Remove(ctx context.Context, symbol string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scan.watchlist WHERE symbol = $1`, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	return tag.RowsAffected() > 0, nil
}
