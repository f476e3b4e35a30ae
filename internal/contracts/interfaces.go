package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 외부 협력자 인터페이스는 여기서만 정의

// MarketDataAggregator assembles price, trend, options and dividend data for one symbol
type MarketDataAggregator interface {
	GetFullMarketData(ctx context.Context, symbol string) (*AggregatedMarketData, error)
}

// FundamentalsProvider returns the current and previous period for a symbol.
// (nil, nil) means the symbol has no fundamentals on file.
type FundamentalsProvider interface {
	GetCompanyData(ctx context.Context, symbol string) (*CompanyFundamentals, error)
}

// FundamentalsDataset is the bulk fundamentals source enumerated by the refresher
type FundamentalsDataset interface {
	// WarmUp makes sure the dataset is loaded. Concurrent callers share one load.
	WarmUp(ctx context.Context) error
	ListSymbols(ctx context.Context) ([]string, error)
	// Invalidate drops the loaded list so the next WarmUp reads the source again
	Invalidate()
}

// PriceProvider returns the last traded price for a symbol
type PriceProvider interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// SymbolDiscovery lists optionable underlyings from an external source
type SymbolDiscovery interface {
	DiscoverUnderlyingSymbols(ctx context.Context) ([]string, error)
}

// NoopDiscovery is the discovery used when discovery is disabled
type NoopDiscovery struct{}

// DiscoverUnderlyingSymbols always returns an empty list
func (NoopDiscovery) DiscoverUnderlyingSymbols(context.Context) ([]string, error) {
	return nil, nil
}

// SymbolProgress describes one symbol's position in the scan loop
type SymbolProgress struct {
	RunID           string `json:"run_id"`
	Symbol          string `json:"symbol"`
	Index           int    `json:"index"` // 1-based
	Total           int    `json:"total"`
	Recommendations int    `json:"recommendations,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ProgressNotifier receives scan progress. Calls are fire-and-forget.
type ProgressNotifier interface {
	NotifyScanStarted(ctx context.Context, runID string, totalSymbols int)
	NotifySymbolScanning(ctx context.Context, p SymbolProgress)
	NotifySymbolCompleted(ctx context.Context, p SymbolProgress)
	NotifySymbolError(ctx context.Context, p SymbolProgress)
	NotifyScanCompleted(ctx context.Context, run ScanRun)
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

func (NoopNotifier) NotifyScanStarted(context.Context, string, int)        {}
func (NoopNotifier) NotifySymbolScanning(context.Context, SymbolProgress)  {}
func (NoopNotifier) NotifySymbolCompleted(context.Context, SymbolProgress) {}
func (NoopNotifier) NotifySymbolError(context.Context, SymbolProgress)     {}
func (NoopNotifier) NotifyScanCompleted(context.Context, ScanRun)          {}

// ScanMetrics receives orchestrator and refresher observations
type ScanMetrics interface {
	ScanFinished(status string, d time.Duration)
	SymbolProcessed(outcome string)
	RecommendationsProduced(strategy string, n int)
	SoftError(tier string)
	RefreshFinished(healthy, unhealthy, failed int, d time.Duration)
}
