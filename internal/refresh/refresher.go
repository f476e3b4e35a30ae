package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/health"
	"github.com/wonny/thetascan/pkg/logger"
)

// BatchEvaluator is the part of the health evaluator the refresher needs
type BatchEvaluator interface {
	EvaluateBatchDetailed(ctx context.Context, symbols []string) map[string]health.BatchEntry
}

// Config controls batching and the healthy threshold
type Config struct {
	BatchSize        int
	BatchDelay       time.Duration
	HealthyMinFScore int
}

// Refresher re-evaluates the whole fundamentals universe and stores health records
// ⭐ SSOT: 건전성 레코드 일괄 갱신은 여기서만
type Refresher struct {
	dataset   contracts.FundamentalsDataset
	evaluator BatchEvaluator
	repo      contracts.HealthRepository
	metrics   contracts.ScanMetrics
	cfg       Config
	logger    *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRefresher creates a bulk refresher
func NewRefresher(
	dataset contracts.FundamentalsDataset,
	evaluator BatchEvaluator,
	repo contracts.HealthRepository,
	metrics contracts.ScanMetrics,
	cfg Config,
	log *logger.Logger,
) *Refresher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Refresher{
		dataset:   dataset,
		evaluator: evaluator,
		repo:      repo,
		metrics:   metrics,
		cfg:       cfg,
		logger:    log.Module("refresh"),
		sleep:     sleepContext,
	}
}

// RefreshAll reloads the dataset and evaluates every symbol batch by batch.
// Dataset failures are fatal; per-symbol failures are counted and the refresh continues.
// On cancellation the partial result is returned with the context error.
func (r *Refresher) RefreshAll(ctx context.Context) (contracts.BulkRefreshResult, error) {
	start := time.Now()
	var result contracts.BulkRefreshResult

	// 매 갱신마다 새로 추가된 심볼을 포함하도록 다시 로드
	r.dataset.Invalidate()
	if err := r.dataset.WarmUp(ctx); err != nil {
		return result, fmt.Errorf("failed to warm up fundamentals dataset: %w", err)
	}

	symbols, err := r.dataset.ListSymbols(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list fundamentals symbols: %w", err)
	}

	batches := chunk(symbols, r.cfg.BatchSize)
	for _, b := range batches {
		result.Total += len(b)
	}
	r.logger.WithFields(map[string]interface{}{
		"symbols":    result.Total,
		"batches":    len(batches),
		"batch_size": r.cfg.BatchSize,
	}).Info("Starting bulk health refresh")

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			r.logger.WithField("completed_batches", i).Warn("Bulk refresh cancelled")
			return result, err
		}

		h, u, f := r.processBatch(ctx, batch)
		result.Healthy += h
		result.Unhealthy += u
		result.Failed += f

		r.logger.WithFields(map[string]interface{}{
			"batch":     i + 1,
			"of":        len(batches),
			"healthy":   h,
			"unhealthy": u,
			"failed":    f,
		}).Info("Batch refreshed")

		if i < len(batches)-1 && r.cfg.BatchDelay > 0 {
			if err := r.sleep(ctx, r.cfg.BatchDelay); err != nil {
				result.Elapsed = time.Since(start)
				return result, err
			}
		}
	}

	result.Elapsed = time.Since(start)
	r.metrics.RefreshFinished(result.Healthy, result.Unhealthy, result.Failed, result.Elapsed)

	r.logger.WithFields(map[string]interface{}{
		"total":     result.Total,
		"healthy":   result.Healthy,
		"unhealthy": result.Unhealthy,
		"failed":    result.Failed,
		"elapsed":   result.Elapsed.String(),
	}).Info("Bulk health refresh completed")

	return result, nil
}

// processBatch evaluates and stores one batch, returning healthy/unhealthy/failed counts
func (r *Refresher) processBatch(ctx context.Context, batch []string) (healthy, unhealthy, failed int) {
	entries := r.evaluator.EvaluateBatchDetailed(ctx, batch)

	for _, symbol := range batch {
		entry, ok := entries[symbol]
		if !ok || entry.Err != nil {
			failed++
			continue
		}

		if err := r.repo.UpsertHealthRecord(ctx, entry.Metrics); err != nil {
			r.logger.WithSymbol(symbol).WithError(err).Warn("Failed to store health record")
			failed++
			continue
		}

		if f := entry.Metrics.FScore; f != nil && *f >= r.cfg.HealthyMinFScore {
			healthy++
		} else {
			unhealthy++
		}
	}
	return healthy, unhealthy, failed
}

// chunk splits symbols into consecutive batches, dropping blanks and duplicates
func chunk(symbols []string, size int) [][]string {
	seen := make(map[string]struct{}, len(symbols))
	var batches [][]string
	var cur []string

	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}

		cur = append(cur, s)
		if len(cur) == size {
			batches = append(batches, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
