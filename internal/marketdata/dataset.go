package marketdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/thetascan/pkg/logger"
)

// Dataset is the bulk fundamentals universe enumerated by the refresher.
// Concurrent WarmUp calls share one load; a failed load is retried on the next call.
type Dataset struct {
	load   func(ctx context.Context) ([]string, error)
	logger *logger.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	loaded  bool
	symbols []string
}

// NewDataset creates a dataset listing every symbol with fundamentals on file
func NewDataset(pool *pgxpool.Pool, log *logger.Logger) *Dataset {
	return newDataset(func(ctx context.Context) ([]string, error) {
		return distinctFundamentalSymbols(ctx, pool)
	}, log)
}

func newDataset(load func(ctx context.Context) ([]string, error), log *logger.Logger) *Dataset {
	return &Dataset{load: load, logger: log.Module("dataset")}
}

// WarmUp loads the symbol list once
func (d *Dataset) WarmUp(ctx context.Context) error {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, shared := d.group.Do("warmup", func() (interface{}, error) {
		d.mu.RLock()
		done := d.loaded
		d.mu.RUnlock()
		if done {
			return nil, nil
		}

		symbols, err := d.load(ctx)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.symbols = symbols
		d.loaded = true
		d.mu.Unlock()

		d.logger.WithField("symbols", len(symbols)).Info("Fundamentals dataset loaded")
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to warm up fundamentals dataset: %w", err)
	}
	if shared {
		d.logger.Debug("Joined in-flight dataset warm-up")
	}
	return nil
}

// ListSymbols warms the dataset if needed and returns a copy of its symbols
func (d *Dataset) ListSymbols(ctx context.Context) ([]string, error) {
	if err := d.WarmUp(ctx); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.symbols))
	copy(out, d.symbols)
	return out, nil
}

// Invalidate forces the next WarmUp to reload
func (d *Dataset) Invalidate() {
	d.mu.Lock()
	d.loaded = false
	d.symbols = nil
	d.mu.Unlock()
}

func distinctFundamentalSymbols(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT DISTINCT symbol FROM data.fundamentals ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fundamentals symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
