package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/thetascan/internal/contracts"
)

// RunRepository persists scan runs in scan.runs
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a scan run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Create inserts a new run
func (r *RunRepository) Create(ctx context.Context, run *contracts.ScanRun) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scan.runs (
			id, started_at, completed_at, status, symbols_scanned,
			recommendations_generated, error_summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, run.ID, run.StartedAt, run.CompletedAt, string(run.Status), run.SymbolsScanned,
		run.RecommendationsGenerated, run.ErrorSummary)
	if err != nil {
		return fmt.Errorf("failed to create scan run %s: %w", run.ID, err)
	}
	return nil
}

// Update writes the mutable fields of a run
func (r *RunRepository) Update(ctx context.Context, run *contracts.ScanRun) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scan.runs SET
			completed_at = $2,
			status = $3,
			symbols_scanned = $4,
			recommendations_generated = $5,
			error_summary = $6
		WHERE id = $1
	`, run.ID, run.CompletedAt, string(run.Status), run.SymbolsScanned,
		run.RecommendationsGenerated, run.ErrorSummary)
	if err != nil {
		return fmt.Errorf("failed to update scan run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scan run %s not found", run.ID)
	}
	return nil
}

// GetRecent returns the newest runs first
func (r *RunRepository) GetRecent(ctx context.Context, limit int) ([]contracts.ScanRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, started_at, completed_at, status, symbols_scanned,
		       recommendations_generated, error_summary
		FROM scan.runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.ScanRun, 0)
	for rows.Next() {
		var run contracts.ScanRun
		var status string
		err := rows.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &status, &run.SymbolsScanned,
			&run.RecommendationsGenerated, &run.ErrorSummary)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.Status = contracts.ScanStatus(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}
