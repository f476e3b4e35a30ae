package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/thetascan/internal/contracts"
)

// HealthRepository persists health records in scan.health_records
type HealthRepository struct {
	pool *pgxpool.Pool
}

// NewHealthRepository creates a health repository
func NewHealthRepository(pool *pgxpool.Pool) *HealthRepository {
	return &HealthRepository{pool: pool}
}

// UpsertHealthRecord inserts or replaces a symbol's record
func (r *HealthRepository) UpsertHealthRecord(ctx context.Context, m contracts.FinancialHealthMetrics) error {
	evaluatedAt := m.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now()
	}

	query := `
		INSERT INTO scan.health_records (
			symbol, f_score, z_score, roa, debt_to_equity, current_ratio,
			market_cap_billions, evaluated_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			f_score = EXCLUDED.f_score,
			z_score = EXCLUDED.z_score,
			roa = EXCLUDED.roa,
			debt_to_equity = EXCLUDED.debt_to_equity,
			current_ratio = EXCLUDED.current_ratio,
			market_cap_billions = EXCLUDED.market_cap_billions,
			evaluated_at = EXCLUDED.evaluated_at,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		m.Symbol, m.FScore, m.ZScore, m.ROA, m.DebtToEquity, m.CurrentRatio,
		m.MarketCapBillions, evaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert health record for %s: %w", m.Symbol, err)
	}
	return nil
}

// GetHealthySymbols returns symbols with F-Score at or above minFScore
func (r *HealthRepository) GetHealthySymbols(ctx context.Context, minFScore int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symbol
		FROM scan.health_records
		WHERE f_score IS NOT NULL AND f_score >= $1
		ORDER BY f_score DESC, symbol ASC
	`, minFScore)
	if err != nil {
		return nil, fmt.Errorf("failed to query healthy symbols: %w", err)
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

// GetBySymbol returns (nil, nil) when the symbol has no record
func (r *HealthRepository) GetBySymbol(ctx context.Context, symbol string) (*contracts.FinancialHealthMetrics, error) {
	var m contracts.FinancialHealthMetrics
	err := r.pool.QueryRow(ctx, `
		SELECT symbol, f_score, z_score, roa, debt_to_equity, current_ratio,
		       market_cap_billions, evaluated_at
		FROM scan.health_records
		WHERE symbol = $1
	`, symbol).Scan(
		&m.Symbol, &m.FScore, &m.ZScore, &m.ROA, &m.DebtToEquity, &m.CurrentRatio,
		&m.MarketCapBillions, &m.EvaluatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health record for %s: %w", symbol, err)
	}
	return &m, nil
}

// GetTotalCount returns the number of stored health records
func (r *HealthRepository) GetTotalCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scan.health_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count health records: %w", err)
	}
	return count, nil
}

// LatestRefresh returns the newest update time, or zero time when the table is empty
func (r *HealthRepository) LatestRefresh(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT MAX(updated_at) FROM scan.health_records`).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest refresh: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
