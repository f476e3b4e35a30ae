package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/strategy"
	"github.com/wonny/thetascan/internal/universe"
	"github.com/wonny/thetascan/pkg/logger"
	"github.com/wonny/thetascan/pkg/metrics"
)

// ErrNoStrategies is returned when the registry has nothing to run
var ErrNoStrategies = errors.New("no strategies registered")

// Soft error tiers reported to metrics
const (
	tierStrategy = "strategy"
	tierSymbol   = "symbol"
)

// Symbol outcomes reported to metrics
const (
	outcomeScanned   = "scanned"
	outcomeUnhealthy = "unhealthy"
	outcomeError     = "error"
)

// StalenessPolicy decides whether health records need a refresh before scanning
type StalenessPolicy interface {
	RefreshRequired(ctx context.Context) (bool, string, error)
}

// BulkRefresher re-evaluates every symbol's health
type BulkRefresher interface {
	RefreshAll(ctx context.Context) (contracts.BulkRefreshResult, error)
}

// StrategyLoader returns the strategies to run
type StrategyLoader interface {
	LoadAll() []strategy.Strategy
}

// UniverseResolver returns the symbols to scan
type UniverseResolver interface {
	Resolve(ctx context.Context) (universe.Result, error)
}

// SymbolHealth evaluates and gates one symbol
type SymbolHealth interface {
	Evaluate(ctx context.Context, symbol string) (contracts.FinancialHealthMetrics, error)
	MeetsRequirements(m contracts.FinancialHealthMetrics) bool
}

// RecommendationSelector applies the persistence policy
type RecommendationSelector interface {
	Select(recs []contracts.Recommendation) []contracts.Recommendation
}

// Deps are the orchestrator's collaborators
type Deps struct {
	Runs            contracts.ScanRunStore
	Recommendations contracts.RecommendationRepository
	Staleness       StalenessPolicy
	Refresher       BulkRefresher
	Strategies      StrategyLoader
	Universe        UniverseResolver
	Health          SymbolHealth
	MarketData      contracts.MarketDataAggregator
	Selector        RecommendationSelector
	Notifier        contracts.ProgressNotifier
	Metrics         contracts.ScanMetrics
}

// Config holds the loop settings
type Config struct {
	InterSymbolDelay   time.Duration
	ErrorSummaryLimit  int
	ErrorSummaryMaxLen int
	// ConfigHash identifies the scan configuration in logs
	ConfigHash string
}

// RunOptions adjusts a single run
type RunOptions struct {
	// Symbols, when set, replaces universe resolution and pre-filtering
	Symbols []string
	// SkipDeactivation keeps earlier recommendations active
	SkipDeactivation bool
}

// Orchestrator runs one scan end to end
// ⭐ SSOT: 스캔 상태 머신은 여기서만
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// NewOrchestrator creates an orchestrator; nil notifier and metrics become no-ops
func NewOrchestrator(deps Deps, cfg Config, log *logger.Logger) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = contracts.NoopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: log.Module("brain"),
		now:    time.Now,
		sleep:  sleepContext,
		newID:  GenerateRunID,
	}
}

// scanState accumulates one run's loop results
type scanState struct {
	run        *contracts.ScanRun
	collected  []contracts.Recommendation
	softErrors []string
	scanned    int
	cancelled  bool
}

func (s *scanState) softError(format string, args ...interface{}) {
	s.softErrors = append(s.softErrors, fmt.Sprintf(format, args...))
}

// Run executes a scan. The returned run is always non-nil and terminal.
// Run-level failures are persisted best-effort and returned.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*contracts.ScanRun, error) {
	run := contracts.NewScanRun(o.newID(), o.now())
	state := &scanState{run: run}

	log := o.logger.WithField("run_id", run.ID)
	log.WithFields(map[string]interface{}{
		"config_hash":     o.cfg.ConfigHash,
		"explicit_symbol": len(opts.Symbols),
	}).Info("Starting scan run")

	if err := o.deps.Runs.Create(ctx, run); err != nil {
		return o.fail(ctx, state, fmt.Errorf("failed to create scan run: %w", err))
	}

	if err := o.ensureFreshHealth(ctx, log); err != nil {
		return o.fail(ctx, state, err)
	}

	strategies := o.deps.Strategies.LoadAll()
	if len(strategies) == 0 {
		return o.fail(ctx, state, ErrNoStrategies)
	}

	symbols, err := o.resolveSymbols(ctx, opts)
	if err != nil {
		return o.fail(ctx, state, fmt.Errorf("failed to resolve universe: %w", err))
	}
	if len(symbols) == 0 {
		log.Warn("No symbols left after pre-filter")
		return o.finish(ctx, state, contracts.ScanCompletedNoHealthySymbols, opts)
	}

	o.deps.Notifier.NotifyScanStarted(ctx, run.ID, len(symbols))
	o.scanSymbols(ctx, state, strategies, symbols)

	status := contracts.ScanCompleted
	switch {
	case state.cancelled:
		status = contracts.ScanCancelled
	case len(state.softErrors) > 0:
		status = contracts.ScanCompletedWithErrors
	}
	return o.finish(ctx, state, status, opts)
}

// ensureFreshHealth blocks on a bulk refresh when the staleness policy requires one
func (o *Orchestrator) ensureFreshHealth(ctx context.Context, log *logger.Logger) error {
	required, reason, err := o.deps.Staleness.RefreshRequired(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health staleness: %w", err)
	}
	if !required {
		return nil
	}

	log.WithField("reason", reason).Info("Health records stale, running bulk refresh")
	result, err := o.deps.Refresher.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("bulk health refresh failed: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"total":   result.Total,
		"healthy": result.Healthy,
		"failed":  result.Failed,
	}).Info("Bulk health refresh finished")
	return nil
}

func (o *Orchestrator) resolveSymbols(ctx context.Context, opts RunOptions) ([]string, error) {
	if len(opts.Symbols) > 0 {
		symbols := make([]string, 0, len(opts.Symbols))
		seen := make(map[string]struct{}, len(opts.Symbols))
		for _, s := range opts.Symbols {
			s = strings.ToUpper(strings.TrimSpace(s))
			if _, dup := seen[s]; s == "" || dup {
				continue
			}
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
		return symbols, nil
	}

	res, err := o.deps.Universe.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return res.Symbols, nil
}

// scanSymbols is the sequential per-symbol loop
func (o *Orchestrator) scanSymbols(ctx context.Context, state *scanState, strategies []strategy.Strategy, symbols []string) {
	total := len(symbols)

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			state.cancelled = true
			o.logger.WithFields(map[string]interface{}{
				"run_id":  state.run.ID,
				"scanned": state.scanned,
				"total":   total,
			}).Warn("Scan cancelled")
			break
		}

		progress := contracts.SymbolProgress{RunID: state.run.ID, Symbol: symbol, Index: i + 1, Total: total}
		o.deps.Notifier.NotifySymbolScanning(ctx, progress)

		recs, outcome, err := o.scanSymbol(ctx, state, strategies, symbol)
		if ctx.Err() != nil {
			// 처리 도중 취소된 심볼은 스캔 수에 포함하지 않음
			state.cancelled = true
			break
		}

		state.scanned++
		state.collected = append(state.collected, recs...)
		o.deps.Metrics.SymbolProcessed(outcome)

		if err != nil {
			progress.Message = err.Error()
			o.deps.Notifier.NotifySymbolError(ctx, progress)
		} else {
			progress.Recommendations = len(recs)
			progress.Message = outcome
			o.deps.Notifier.NotifySymbolCompleted(ctx, progress)
		}

		if i < total-1 && o.cfg.InterSymbolDelay > 0 {
			// 취소되면 다음 반복 시작에서 감지
			_ = o.sleep(ctx, o.cfg.InterSymbolDelay)
		}
	}
}

// scanSymbol runs health, market data and every strategy for one symbol.
// The error is the symbol-tier failure, already recorded as a soft error.
func (o *Orchestrator) scanSymbol(ctx context.Context, state *scanState, strategies []strategy.Strategy, symbol string) ([]contracts.Recommendation, string, error) {
	log := o.logger.WithSymbol(symbol)

	metrics, err := o.deps.Health.Evaluate(ctx, symbol)
	if err != nil {
		return nil, outcomeError, o.symbolError(state, symbol, fmt.Errorf("health evaluation: %w", err))
	}
	if !o.deps.Health.MeetsRequirements(metrics) {
		log.Debug("Health gate not passed, skipping market data")
		return nil, outcomeUnhealthy, nil
	}

	data, err := o.deps.MarketData.GetFullMarketData(ctx, symbol)
	if err != nil {
		return nil, outcomeError, o.symbolError(state, symbol, fmt.Errorf("market data: %w", err))
	}
	if data == nil {
		return nil, outcomeError, o.symbolError(state, symbol, errors.New("no market data"))
	}

	enriched := data.WithHealth(metrics)

	var recs []contracts.Recommendation
	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}

		produced, err := o.runStrategy(ctx, s, enriched)
		if err != nil {
			state.softError("%s/%s: %v", symbol, s.Name(), err)
			o.deps.Metrics.SoftError(tierStrategy)
			log.WithField("strategy", s.Name()).WithError(err).Warn("Strategy failed")
			continue
		}

		for i := range produced {
			produced[i].ScanRunID = state.run.ID
			produced[i].CreatedAt = state.run.StartedAt
		}
		o.deps.Metrics.RecommendationsProduced(s.Name(), len(produced))
		recs = append(recs, produced...)
	}

	log.WithField("recommendations", len(recs)).Debug("Symbol scanned")
	return recs, outcomeScanned, nil
}

func (o *Orchestrator) symbolError(state *scanState, symbol string, err error) error {
	state.softError("%s: %v", symbol, err)
	o.deps.Metrics.SoftError(tierSymbol)
	o.logger.WithSymbol(symbol).WithError(err).Warn("Symbol scan failed")
	return err
}

// runStrategy isolates a strategy, converting panics into errors
func (o *Orchestrator) runStrategy(ctx context.Context, s strategy.Strategy, data contracts.AggregatedMarketData) (recs []contracts.Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Analyze(ctx, data)
}

// finish selects, persists and finalizes the run. Persistence ignores cancellation.
func (o *Orchestrator) finish(ctx context.Context, state *scanState, status contracts.ScanStatus, opts RunOptions) (*contracts.ScanRun, error) {
	persistCtx := context.WithoutCancel(ctx)
	run := state.run

	selected := o.deps.Selector.Select(state.collected)

	// 취소된 스캔은 일부 심볼만 처리했으므로 기존 추천을 비활성화하지 않음
	var inserted int64
	if status != contracts.ScanCancelled && !opts.SkipDeactivation {
		n, deactivated, err := o.deps.Recommendations.ReplaceActive(persistCtx, run.ID, selected)
		if err != nil {
			return o.fail(ctx, state, fmt.Errorf("failed to persist recommendations: %w", err))
		}
		inserted = n
		o.logger.WithField("deactivated", deactivated).Debug("Earlier recommendations deactivated")
	} else {
		n, err := o.deps.Recommendations.AddRange(persistCtx, selected)
		if err != nil {
			return o.fail(ctx, state, fmt.Errorf("failed to persist recommendations: %w", err))
		}
		inserted = n
	}

	final := *run
	final.SymbolsScanned = state.scanned
	final.RecommendationsGenerated = int(inserted)
	final.ErrorSummary = contracts.SummarizeErrors(state.softErrors, o.cfg.ErrorSummaryLimit, o.cfg.ErrorSummaryMaxLen)
	if err := final.Finish(status, o.now()); err != nil {
		return o.fail(ctx, state, err)
	}
	if err := o.deps.Runs.Update(persistCtx, &final); err != nil {
		return o.fail(ctx, state, fmt.Errorf("failed to finalize scan run: %w", err))
	}
	*run = final

	o.deps.Metrics.ScanFinished(string(run.Status), run.Duration())
	o.deps.Notifier.NotifyScanCompleted(persistCtx, *run)

	o.logger.WithFields(map[string]interface{}{
		"run_id":          run.ID,
		"status":          run.Status,
		"symbols_scanned": run.SymbolsScanned,
		"collected":       len(state.collected),
		"persisted":       run.RecommendationsGenerated,
		"soft_errors":     len(state.softErrors),
		"duration":        run.Duration().String(),
	}).Info("Scan run finished")

	return run, nil
}

// fail marks the run Failed (Cancelled when the cause is the run's own cancellation),
// persists it best-effort and returns the original error
func (o *Orchestrator) fail(ctx context.Context, state *scanState, cause error) (*contracts.ScanRun, error) {
	persistCtx := context.WithoutCancel(ctx)
	run := state.run

	status := contracts.ScanFailed
	if ctx.Err() != nil && errors.Is(cause, ctx.Err()) {
		status = contracts.ScanCancelled
	}

	run.SymbolsScanned = state.scanned
	run.ErrorSummary = contracts.SummarizeErrors([]string{cause.Error()}, 1, o.cfg.ErrorSummaryMaxLen)
	if err := run.Finish(status, o.now()); err != nil {
		o.logger.WithError(err).Error("Scan run already terminal")
	}

	if err := o.deps.Runs.Update(persistCtx, run); err != nil {
		o.logger.WithField("run_id", run.ID).WithError(err).Error("Failed to persist failed scan run")
	}

	o.deps.Metrics.ScanFinished(string(run.Status), run.Duration())
	o.deps.Notifier.NotifyScanCompleted(persistCtx, *run)

	o.logger.WithField("run_id", run.ID).WithError(cause).Error("Scan run failed")
	return run, fmt.Errorf("scan run %s failed: %w", run.ID, cause)
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", time.Now().Format("20060102_150405.000"))
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
