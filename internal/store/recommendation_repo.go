package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/thetascan/internal/contracts"
)

// moneyPlaces is the scale of NUMERIC(14,4) money columns
const moneyPlaces = 4

// RecommendationRepository persists recommendations in scan.recommendations
// ⭐ SSOT: 추천 저장/조회는 여기서만
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

// NewRecommendationRepository creates a recommendation repository
func NewRecommendationRepository(pool *pgxpool.Pool) *RecommendationRepository {
	return &RecommendationRepository{pool: pool}
}

func money(v float64) string {
	return decimal.NewFromFloat(v).Round(moneyPlaces).String()
}

func parseMoney(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid money value %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// AddRange inserts recommendations in one transaction and returns the inserted count
func (r *RecommendationRepository) AddRange(ctx context.Context, recs []contracts.Recommendation) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertRecommendations(ctx, tx, recs)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// ReplaceActive inserts a run's recommendations and deactivates every other run's
// active rows in the same transaction
func (r *RecommendationRepository) ReplaceActive(ctx context.Context, runID string, recs []contracts.Recommendation) (int64, int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertRecommendations(ctx, tx, recs)
	if err != nil {
		return 0, 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE scan.recommendations
		SET is_active = FALSE
		WHERE is_active AND scan_run_id <> $1
	`, runID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to deactivate recommendations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, tag.RowsAffected(), nil
}

func insertRecommendations(ctx context.Context, tx pgx.Tx, recs []contracts.Recommendation) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO scan.recommendations (
			scan_run_id, symbol, strategy_name, strike, expiry, days_to_expiry,
			premium, breakeven, confidence, expected_growth, f_score, z_score,
			is_active, created_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::numeric, $8::numeric, $9, $10, $11, $12, $13, $14)
	`

	batch := &pgx.Batch{}
	for _, rec := range recs {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		batch.Queue(query,
			rec.ScanRunID, rec.Symbol, rec.StrategyName,
			money(rec.Strike), rec.Expiry, rec.DaysToExpiry,
			money(rec.Premium), money(rec.Breakeven),
			rec.Confidence, rec.ExpectedGrowth, rec.FScore, rec.ZScore,
			rec.IsActive, createdAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted int64
	for range recs {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to insert recommendation: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}
	return inserted, nil
}

// DeactivateOld marks active recommendations created before the cutoff inactive
func (r *RecommendationRepository) DeactivateOld(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scan.recommendations
		SET is_active = FALSE
		WHERE is_active AND created_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate recommendations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetBySymbol returns a symbol's recommendations, newest first
func (r *RecommendationRepository) GetBySymbol(ctx context.Context, symbol string, activeOnly bool) ([]contracts.Recommendation, error) {
	query := `
		SELECT
			id, scan_run_id, symbol, strategy_name, strike::text, expiry, days_to_expiry,
			premium::text, breakeven::text, confidence, expected_growth, f_score, z_score,
			is_active, created_at
		FROM scan.recommendations
		WHERE symbol = $1 AND (NOT $2::boolean OR is_active)
		ORDER BY created_at DESC, confidence DESC
	`

	rows, err := r.pool.Query(ctx, query, symbol, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	results := make([]contracts.Recommendation, 0)
	for rows.Next() {
		var rec contracts.Recommendation
		var strike, premium, breakeven string
		err := rows.Scan(
			&rec.ID, &rec.ScanRunID, &rec.Symbol, &rec.StrategyName, &strike, &rec.Expiry, &rec.DaysToExpiry,
			&premium, &breakeven, &rec.Confidence, &rec.ExpectedGrowth, &rec.FScore, &rec.ZScore,
			&rec.IsActive, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if rec.Strike, err = parseMoney(strike); err != nil {
			return nil, err
		}
		if rec.Premium, err = parseMoney(premium); err != nil {
			return nil, err
		}
		if rec.Breakeven, err = parseMoney(breakeven); err != nil {
			return nil, err
		}

		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// DeleteStale removes recommendations older than maxAge
func (r *RecommendationRepository) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	tag, err := r.pool.Exec(ctx, `DELETE FROM scan.recommendations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale recommendations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetTotalCount returns the number of stored recommendations
func (r *RecommendationRepository) GetTotalCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scan.recommendations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return count, nil
}
