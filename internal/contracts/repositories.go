package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// RecommendationRepository stores strategy output
type RecommendationRepository interface {
	AddRange(ctx context.Context, recs []Recommendation) (int64, error)
	// DeactivateOld marks active recommendations created before the cutoff inactive
	DeactivateOld(ctx context.Context, before time.Time) (int64, error)
	// ReplaceActive inserts recs and deactivates every other run's active rows atomically.
	// On error nothing changes.
	ReplaceActive(ctx context.Context, runID string, recs []Recommendation) (inserted, deactivated int64, err error)
	GetBySymbol(ctx context.Context, symbol string, activeOnly bool) ([]Recommendation, error)
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
	GetTotalCount(ctx context.Context) (int64, error)
}

// HealthRepository stores per-symbol health records
type HealthRepository interface {
	UpsertHealthRecord(ctx context.Context, m FinancialHealthMetrics) error
	GetHealthySymbols(ctx context.Context, minFScore int) ([]string, error)
	// GetBySymbol returns (nil, nil) when the symbol has no record
	GetBySymbol(ctx context.Context, symbol string) (*FinancialHealthMetrics, error)
	GetTotalCount(ctx context.Context) (int64, error)
	// LatestRefresh returns the newest record time, or zero time when empty
	LatestRefresh(ctx context.Context) (time.Time, error)
}

// ScanRunStore stores scan run records
type ScanRunStore interface {
	Create(ctx context.Context, run *ScanRun) error
	Update(ctx context.Context, run *ScanRun) error
	GetRecent(ctx context.Context, limit int) ([]ScanRun, error)
}

// WatchlistStore returns the user-maintained symbol list
type WatchlistStore interface {
	ListSymbols(ctx context.Context) ([]string, error)
}
