package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// Config holds the health gate thresholds
type Config struct {
	MinFScore        int
	MinZScore        float64
	BatchConcurrency int
}

// DefaultConfig returns the standard gate (F ≥ 7, Z ≥ 1.81, 5 workers)
func DefaultConfig() Config {
	return Config{
		MinFScore:        7,
		MinZScore:        1.81,
		BatchConcurrency: 5,
	}
}

// Evaluator computes F-Score and Z-Score for symbols
// ⭐ SSOT: 재무 건전성 판정은 여기서만
type Evaluator struct {
	fundamentals contracts.FundamentalsProvider
	prices       contracts.PriceProvider
	cfg          Config
	logger       *logger.Logger
	now          func() time.Time
}

// NewEvaluator creates an evaluator. prices may be nil, in which case book equity is used.
func NewEvaluator(fundamentals contracts.FundamentalsProvider, prices contracts.PriceProvider, cfg Config, log *logger.Logger) *Evaluator {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultConfig().BatchConcurrency
	}
	return &Evaluator{
		fundamentals: fundamentals,
		prices:       prices,
		cfg:          cfg,
		logger:       log.Module("health"),
		now:          time.Now,
	}
}

// Config returns the gate thresholds in use
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate computes health metrics for one symbol.
// Missing fundamentals yield absent scores; only provider failures return an error.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string) (contracts.FinancialHealthMetrics, error) {
	now := e.now()

	data, err := e.fundamentals.GetCompanyData(ctx, symbol)
	if err != nil {
		return contracts.UnknownHealth(symbol, now), fmt.Errorf("get fundamentals for %s: %w", symbol, err)
	}
	if data == nil {
		e.logger.WithSymbol(symbol).Debug("No fundamentals on file")
		return contracts.UnknownHealth(symbol, now), nil
	}

	price := e.currentPrice(ctx, symbol)

	return e.compute(symbol, data, price, now), nil
}

// currentPrice returns 0 when no live price is available
func (e *Evaluator) currentPrice(ctx context.Context, symbol string) float64 {
	if e.prices == nil {
		return 0
	}

	price, err := e.prices.GetCurrentPrice(ctx, symbol)
	if err != nil {
		e.logger.WithSymbol(symbol).WithError(err).Debug("Price unavailable, using book equity")
		return 0
	}
	return price
}

func (e *Evaluator) compute(symbol string, data *contracts.CompanyFundamentals, price float64, now time.Time) contracts.FinancialHealthMetrics {
	cur := data.Current

	f := FScore(cur, data.Previous)
	z := ZScore(cur, price)

	m := contracts.FinancialHealthMetrics{
		Symbol:      symbol,
		FScore:      &f,
		ZScore:      z,
		EvaluatedAt: now,
	}
	m.ROA, _ = ratio(cur.NetIncome, cur.TotalAssets)
	m.DebtToEquity, _ = ratio(cur.TotalDebt, cur.ShareholdersEquity)
	m.CurrentRatio, _ = ratio(cur.CurrentAssets, cur.CurrentLiabilities)
	if price > 0 && cur.SharesOutstanding > 0 {
		m.MarketCapBillions = price * cur.SharesOutstanding / 1e9
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"f_score":  f,
		"z_score":  z,
		"has_prev": data.Previous != nil,
		"price":    price,
		"mcap_bn":  m.MarketCapBillions,
	}).Debug("Evaluated financial health")

	return m
}

// MeetsRequirements applies the configured gate
func (e *Evaluator) MeetsRequirements(m contracts.FinancialHealthMetrics) bool {
	return MeetsRequirements(m, e.cfg.MinFScore, e.cfg.MinZScore)
}

// ErrEmptySymbol is reported for blank batch inputs
var ErrEmptySymbol = errors.New("empty symbol")

// BatchEntry is one symbol's batch outcome. Err is set when the evaluation itself failed.
type BatchEntry struct {
	Metrics contracts.FinancialHealthMetrics
	Err     error
}

// EvaluateBatch evaluates symbols with bounded concurrency.
// The result is keyed by the caller's input strings with exactly one entry per distinct input;
// failures yield absent scores.
func (e *Evaluator) EvaluateBatch(ctx context.Context, symbols []string) map[string]contracts.FinancialHealthMetrics {
	detailed := e.EvaluateBatchDetailed(ctx, symbols)

	out := make(map[string]contracts.FinancialHealthMetrics, len(detailed))
	for symbol, entry := range detailed {
		out[symbol] = entry.Metrics
	}
	return out
}

// EvaluateBatchDetailed is EvaluateBatch that also reports per-symbol errors.
// Inputs differing only in surrounding whitespace share one evaluation but each keeps its own key;
// blank inputs get an entry with ErrEmptySymbol.
func (e *Evaluator) EvaluateBatchDetailed(ctx context.Context, symbols []string) map[string]BatchEntry {
	results := make(map[string]BatchEntry, len(symbols))
	var mu sync.Mutex

	// trimmed symbol -> raw input keys
	keys := make(map[string][]string, len(symbols))
	order := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		if _, dup := results[raw]; dup {
			continue
		}
		symbol := strings.TrimSpace(raw)
		if symbol == "" {
			results[raw] = BatchEntry{Metrics: contracts.UnknownHealth(raw, e.now()), Err: ErrEmptySymbol}
			continue
		}
		if _, ok := keys[symbol]; !ok {
			order = append(order, symbol)
		}
		if !containsString(keys[symbol], raw) {
			keys[symbol] = append(keys[symbol], raw)
		}
	}

	set := func(symbol string, entry BatchEntry) {
		mu.Lock()
		for _, raw := range keys[symbol] {
			results[raw] = entry
		}
		mu.Unlock()
	}

	// 개별 실패가 배치를 중단시키지 않도록 워커는 항상 nil 반환
	var g errgroup.Group
	g.SetLimit(e.cfg.BatchConcurrency)

	for _, symbol := range order {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				set(symbol, BatchEntry{Metrics: contracts.UnknownHealth(symbol, e.now()), Err: err})
				return nil
			}

			m, err := e.evaluateSafely(ctx, symbol)
			if err != nil {
				e.logger.WithSymbol(symbol).WithError(err).Warn("Health evaluation failed")
			}
			set(symbol, BatchEntry{Metrics: m, Err: err})
			return nil
		})
	}
	_ = g.Wait()

	e.logger.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"evaluated": len(order),
	}).Debug("Batch health evaluation completed")

	return results
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// evaluateSafely converts a provider panic into an error so one symbol cannot take down the batch
func (e *Evaluator) evaluateSafely(ctx context.Context, symbol string) (m contracts.FinancialHealthMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = contracts.UnknownHealth(symbol, e.now())
			err = fmt.Errorf("health evaluation panicked for %s: %v", symbol, r)
		}
	}()
	return e.Evaluate(ctx, symbol)
}
