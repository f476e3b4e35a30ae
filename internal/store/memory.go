package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
)

// Memory is an in-process implementation of every scan repository.
// Used by dry-run scans and by tests.
type Memory struct {
	mu        sync.RWMutex
	recs      []contracts.Recommendation
	nextID    int64
	health    map[string]contracts.FinancialHealthMetrics
	updatedAt map[string]time.Time
	runs      map[string]contracts.ScanRun
	watchlist []string

	now func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		health:    make(map[string]contracts.FinancialHealthMetrics),
		updatedAt: make(map[string]time.Time),
		runs:      make(map[string]contracts.ScanRun),
		now:       time.Now,
	}
}

// SetClock overrides the time source
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// --- recommendations ---

func (m *Memory) AddRange(ctx context.Context, recs []contracts.Recommendation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(recs), nil
}

func (m *Memory) ReplaceActive(ctx context.Context, runID string, recs []contracts.Recommendation) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := m.insertLocked(recs)
	var deactivated int64
	for i := range m.recs {
		if m.recs[i].IsActive && m.recs[i].ScanRunID != runID {
			m.recs[i].IsActive = false
			deactivated++
		}
	}
	return inserted, deactivated, nil
}

func (m *Memory) insertLocked(recs []contracts.Recommendation) int64 {
	for _, rec := range recs {
		m.nextID++
		rec.ID = m.nextID
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = m.now()
		}
		m.recs = append(m.recs, rec)
	}
	return int64(len(recs))
}

func (m *Memory) DeactivateOld(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for i := range m.recs {
		if m.recs[i].IsActive && m.recs[i].CreatedAt.Before(before) {
			m.recs[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetBySymbol(ctx context.Context, symbol string, activeOnly bool) ([]contracts.Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]contracts.Recommendation, 0)
	for _, rec := range m.recs {
		if rec.Symbol != symbol || (activeOnly && !rec.IsActive) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	kept := m.recs[:0]
	var n int64
	for _, rec := range m.recs {
		if rec.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	m.recs = kept
	return n, nil
}

func (m *Memory) GetTotalCount(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.recs)), nil
}

// Recommendations returns a copy of everything stored
func (m *Memory) Recommendations() []contracts.Recommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]contracts.Recommendation, len(m.recs))
	copy(out, m.recs)
	return out
}

// --- health records ---

// MemoryHealth adapts Memory to contracts.HealthRepository; the method sets clash on GetBySymbol and GetTotalCount
type MemoryHealth struct {
	m *Memory
}

// Health returns the health repository view
func (m *Memory) Health() *MemoryHealth {
	return &MemoryHealth{m: m}
}

func (h *MemoryHealth) UpsertHealthRecord(ctx context.Context, metrics contracts.FinancialHealthMetrics) error {
	if metrics.Symbol == "" {
		return fmt.Errorf("health record without symbol")
	}

	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	h.m.health[metrics.Symbol] = metrics
	h.m.updatedAt[metrics.Symbol] = h.m.now()
	return nil
}

func (h *MemoryHealth) GetHealthySymbols(ctx context.Context, minFScore int) ([]string, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()

	out := make([]string, 0)
	for symbol, metrics := range h.m.health {
		if metrics.FScore != nil && *metrics.FScore >= minFScore {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (h *MemoryHealth) GetBySymbol(ctx context.Context, symbol string) (*contracts.FinancialHealthMetrics, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()

	metrics, ok := h.m.health[symbol]
	if !ok {
		return nil, nil
	}
	return &metrics, nil
}

func (h *MemoryHealth) GetTotalCount(ctx context.Context) (int64, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()
	return int64(len(h.m.health)), nil
}

func (h *MemoryHealth) LatestRefresh(ctx context.Context) (time.Time, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()

	var latest time.Time
	for _, t := range h.m.updatedAt {
		if t.After(latest) {
			latest = t
		}
	}
	return latest, nil
}

// --- scan runs ---

// MemoryRuns adapts Memory to contracts.ScanRunStore
type MemoryRuns struct {
	m *Memory
}

// Runs returns the scan run store view
func (m *Memory) Runs() *MemoryRuns {
	return &MemoryRuns{m: m}
}

func (r *MemoryRuns) Create(ctx context.Context, run *contracts.ScanRun) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.runs[run.ID]; exists {
		return fmt.Errorf("scan run %s already exists", run.ID)
	}
	r.m.runs[run.ID] = *run
	return nil
}

func (r *MemoryRuns) Update(ctx context.Context, run *contracts.ScanRun) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.runs[run.ID]; !exists {
		return fmt.Errorf("scan run %s not found", run.ID)
	}
	r.m.runs[run.ID] = *run
	return nil
}

func (r *MemoryRuns) GetRecent(ctx context.Context, limit int) ([]contracts.ScanRun, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	out := make([]contracts.ScanRun, 0, len(r.m.runs))
	for _, run := range r.m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- watchlist ---

// SetWatchlist replaces the watchlist
func (m *Memory) SetWatchlist(symbols ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchlist = append([]string(nil), symbols...)
}

// ListSymbols returns the watchlist
func (m *Memory) ListSymbols(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.watchlist...), nil
}
