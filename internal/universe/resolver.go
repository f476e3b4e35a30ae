package universe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// ErrUniverseUnavailable is returned when discovery fails and no fallback is allowed
var ErrUniverseUnavailable = errors.New("symbol universe unavailable")

// Source names where the universe came from
type Source string

const (
	SourceDiscovery Source = "discovery"
	SourceWatchlist Source = "watchlist"
	SourceStatic    Source = "static"
)

// HealthGate is the part of the health evaluator the pre-filter needs
type HealthGate interface {
	EvaluateBatch(ctx context.Context, symbols []string) map[string]contracts.FinancialHealthMetrics
	MeetsRequirements(m contracts.FinancialHealthMetrics) bool
}

// Config controls resolution and pre-filtering
type Config struct {
	DiscoveryEnabled    bool
	FallbackToWatchlist bool
	PrefilterEnabled    bool
	StaticSymbols       []string
}

// Result is the resolved universe
type Result struct {
	Symbols  []string
	Source   Source
	Resolved int // before pre-filtering
	Dropped  []string
}

// Resolver builds the per-scan symbol list
// ⭐ SSOT: 스캔 대상 심볼 결정은 여기서만
type Resolver struct {
	discovery contracts.SymbolDiscovery
	watchlist contracts.WatchlistStore
	health    contracts.HealthRepository
	gate      HealthGate
	cfg       Config
	logger    *logger.Logger
}

// NewResolver creates a resolver. discovery may be contracts.NoopDiscovery.
func NewResolver(
	discovery contracts.SymbolDiscovery,
	watchlist contracts.WatchlistStore,
	health contracts.HealthRepository,
	gate HealthGate,
	cfg Config,
	log *logger.Logger,
) *Resolver {
	return &Resolver{
		discovery: discovery,
		watchlist: watchlist,
		health:    health,
		gate:      gate,
		cfg:       cfg,
		logger:    log.Module("universe"),
	}
}

// Resolve returns the scan universe: discovery, then watchlist, then the static list,
// optionally narrowed by the health pre-filter.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	symbols, source, err := r.resolveRaw(ctx)
	if err != nil {
		return Result{}, err
	}

	result := Result{Symbols: symbols, Source: source, Resolved: len(symbols)}
	if r.cfg.PrefilterEnabled && len(symbols) > 0 {
		kept, dropped, err := r.prefilter(ctx, symbols)
		if err != nil {
			return Result{}, err
		}
		result.Symbols = kept
		result.Dropped = dropped
	}

	r.logger.WithFields(map[string]interface{}{
		"source":   result.Source,
		"resolved": result.Resolved,
		"kept":     len(result.Symbols),
		"dropped":  len(result.Dropped),
	}).Info("Universe resolved")

	return result, nil
}

func (r *Resolver) resolveRaw(ctx context.Context) ([]string, Source, error) {
	if r.cfg.DiscoveryEnabled {
		discovered, err := r.discovery.DiscoverUnderlyingSymbols(ctx)
		switch {
		case err == nil && len(normalize(discovered)) > 0:
			return normalize(discovered), SourceDiscovery, nil
		case err != nil && !r.cfg.FallbackToWatchlist:
			return nil, "", fmt.Errorf("%w: discovery failed: %v", ErrUniverseUnavailable, err)
		case err != nil:
			r.logger.WithError(err).Warn("Symbol discovery failed, falling back to watchlist")
		default:
			r.logger.Warn("Symbol discovery returned nothing, falling back")
		}
	}

	watch, err := r.watchlist.ListSymbols(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to read watchlist, using static symbols")
	} else if symbols := normalize(watch); len(symbols) > 0 {
		return symbols, SourceWatchlist, nil
	}

	return normalize(r.cfg.StaticSymbols), SourceStatic, nil
}

// prefilter keeps symbols that pass the gate plus symbols with no stored health record
func (r *Resolver) prefilter(ctx context.Context, symbols []string) (kept, dropped []string, err error) {
	metrics := r.gate.EvaluateBatch(ctx, symbols)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for _, symbol := range symbols {
		m, ok := metrics[symbol]
		if ok && r.gate.MeetsRequirements(m) {
			kept = append(kept, symbol)
			continue
		}

		if !ok || !m.HasScores() {
			known, err := r.hasRecord(ctx, symbol)
			if err != nil {
				return nil, nil, err
			}
			if !known {
				r.logger.WithSymbol(symbol).Debug("No health record, keeping symbol")
				kept = append(kept, symbol)
				continue
			}
		}

		dropped = append(dropped, symbol)
	}
	return kept, dropped, nil
}

func (r *Resolver) hasRecord(ctx context.Context, symbol string) (bool, error) {
	rec, err := r.health.GetBySymbol(ctx, symbol)
	if err != nil {
		return false, fmt.Errorf("failed to look up health record for %s: %w", symbol, err)
	}
	return rec != nil, nil
}

// normalize upper-cases, trims and dedupes while keeping order
func normalize(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
