package universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/store"
	"github.com/wonny/thetascan/pkg/logger"
)

type fakeDiscovery struct {
	symbols []string
	err     error
}

func (d fakeDiscovery) DiscoverUnderlyingSymbols(ctx context.Context) ([]string, error) {
	return d.symbols, d.err
}

type failingWatchlist struct{}

func (failingWatchlist) ListSymbols(ctx context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

// fakeGate passes symbols listed in healthy and reports absent scores for the rest
type fakeGate struct {
	healthy map[string]bool
}

func (g fakeGate) EvaluateBatch(ctx context.Context, symbols []string) map[string]contracts.FinancialHealthMetrics {
	out := make(map[string]contracts.FinancialHealthMetrics, len(symbols))
	for _, s := range symbols {
		m := contracts.UnknownHealth(s, time.Now())
		if pass, known := g.healthy[s]; known {
			f, z := 3, 0.5
			if pass {
				f, z = 8, 3.0
			}
			m.FScore, m.ZScore = &f, &z
		}
		out[s] = m
	}
	return out
}

func (g fakeGate) MeetsRequirements(m contracts.FinancialHealthMetrics) bool {
	return m.HasScores() && *m.FScore >= 7 && *m.ZScore >= 1.81
}

func newResolver(d contracts.SymbolDiscovery, w contracts.WatchlistStore, mem *store.Memory, gate HealthGate, cfg Config) *Resolver {
	return NewResolver(d, w, mem.Health(), gate, cfg, logger.NewNop())
}

func TestResolve_DiscoveryFirst(t *testing.T) {
	mem := store.NewMemory()
	mem.SetWatchlist("KO")

	r := newResolver(fakeDiscovery{symbols: []string{"aapl", " msft ", "AAPL"}}, mem, mem, fakeGate{}, Config{
		DiscoveryEnabled: true,
		StaticSymbols:    []string{"PEP"},
	})

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDiscovery, res.Source)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols)
}

func TestResolve_DiscoveryFailureFallsBackToWatchlist(t *testing.T) {
	mem := store.NewMemory()
	mem.SetWatchlist("KO", "PEP")

	r := newResolver(fakeDiscovery{err: errors.New("timeout")}, mem, mem, fakeGate{}, Config{
		DiscoveryEnabled:    true,
		FallbackToWatchlist: true,
		StaticSymbols:       []string{"JNJ"},
	})

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceWatchlist, res.Source)
	assert.Equal(t, []string{"KO", "PEP"}, res.Symbols)
}

func TestResolve_DiscoveryFailureWithoutFallbackIsFatal(t *testing.T) {
	mem := store.NewMemory()
	r := newResolver(fakeDiscovery{err: errors.New("timeout")}, mem, mem, fakeGate{}, Config{
		DiscoveryEnabled: true,
		StaticSymbols:    []string{"JNJ"},
	})

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrUniverseUnavailable)
}

func TestResolve_EmptyWatchlistFallsBackToStatic(t *testing.T) {
	mem := store.NewMemory()
	r := newResolver(contracts.NoopDiscovery{}, mem, mem, fakeGate{}, Config{
		StaticSymbols: []string{"JNJ", "PG"},
	})

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceStatic, res.Source)
	assert.Equal(t, []string{"JNJ", "PG"}, res.Symbols)

	r = newResolver(contracts.NoopDiscovery{}, failingWatchlist{}, mem, fakeGate{}, Config{
		StaticSymbols: []string{"JNJ"},
	})
	res, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceStatic, res.Source)
}

func TestResolve_PrefilterKeepsUnknownSymbols(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.SetWatchlist("GOOD", "BAD", "NEWCO", "STALE")

	// STALE has a stored record but no computable scores now
	require.NoError(t, mem.Health().UpsertHealthRecord(ctx, contracts.UnknownHealth("STALE", time.Now())))

	gate := fakeGate{healthy: map[string]bool{"GOOD": true, "BAD": false}}
	r := newResolver(contracts.NoopDiscovery{}, mem, mem, gate, Config{
		PrefilterEnabled: true,
		StaticSymbols:    []string{"X"},
	})

	res, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOD", "NEWCO"}, res.Symbols)
	assert.Equal(t, []string{"BAD", "STALE"}, res.Dropped)
	assert.Equal(t, 4, res.Resolved)
}

func TestResolve_PrefilterCanEmptyTheUniverse(t *testing.T) {
	mem := store.NewMemory()
	mem.SetWatchlist("BAD")

	r := newResolver(contracts.NoopDiscovery{}, mem, mem, fakeGate{healthy: map[string]bool{"BAD": false}}, Config{
		PrefilterEnabled: true,
		StaticSymbols:    []string{"X"},
	})

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Symbols)
	assert.Equal(t, 1, res.Resolved)
}
