package health

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

type fakeFundamentals struct {
	mu    sync.Mutex
	data  map[string]*contracts.CompanyFundamentals
	errs  map[string]error
	calls int
	// inFlight tracks concurrency when block is set
	inFlight atomic.Int32
	peak     atomic.Int32
	block    time.Duration
}

func (f *fakeFundamentals) GetCompanyData(ctx context.Context, symbol string) (*contracts.CompanyFundamentals, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.block > 0 {
		time.Sleep(f.block)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.data[symbol], nil
}

type fakePrices struct {
	prices map[string]float64
	err    error
}

func (p *fakePrices) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	price, ok := p.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

// strongCompany improves on every year-over-year criterion
func strongCompany() *contracts.CompanyFundamentals {
	return &contracts.CompanyFundamentals{
		Symbol: "GOOD",
		Current: contracts.FundamentalPeriod{
			TotalAssets:        1_000_000,
			Cash:               100_000,
			TotalDebt:          250_000,
			LongTermDebt:       200_000,
			CurrentAssets:      400_000,
			CurrentLiabilities: 200_000,
			ShareholdersEquity: 600_000,
			RetainedEarnings:   300_000,
			TotalLiabilities:   400_000,
			Revenue:            800_000,
			OperatingIncome:    150_000,
			NetIncome:          80_000,
			OperatingCashFlow:  120_000,
			SharesOutstanding:  100_000,
		},
		Previous: &contracts.FundamentalPeriod{
			TotalAssets:        1_000_000,
			LongTermDebt:       250_000,
			CurrentAssets:      300_000,
			CurrentLiabilities: 200_000,
			Revenue:            700_000,
			OperatingIncome:    100_000,
			NetIncome:          50_000,
			SharesOutstanding:  100_000,
		},
	}
}

func newTestEvaluator(f contracts.FundamentalsProvider, p contracts.PriceProvider) *Evaluator {
	return NewEvaluator(f, p, DefaultConfig(), logger.NewNop())
}

func TestFScore_AllCriteriaPass(t *testing.T) {
	data := strongCompany()
	assert.Equal(t, 9, FScore(data.Current, data.Previous))
}

func TestFScore_WithoutPreviousPeriod(t *testing.T) {
	data := strongCompany()
	score := FScore(data.Current, nil)
	assert.Equal(t, 3, score)
	assert.LessOrEqual(t, score, 4)
}

func TestFScore_ZeroDenominatorsAwardNothing(t *testing.T) {
	score := FScore(contracts.FundamentalPeriod{}, &contracts.FundamentalPeriod{})
	assert.Equal(t, 0, score)
}

func TestFScore_Bounds(t *testing.T) {
	periods := []contracts.FundamentalPeriod{
		{},
		{TotalAssets: -5, NetIncome: -1, OperatingCashFlow: -10},
		{TotalAssets: 1, NetIncome: math.MaxFloat64, Revenue: math.Inf(1), SharesOutstanding: 1},
		strongCompany().Current,
	}
	for i, cur := range periods {
		for j := range periods {
			prev := periods[j]
			score := FScore(cur, &prev)
			assert.GreaterOrEqual(t, score, 0, "cur=%d prev=%d", i, j)
			assert.LessOrEqual(t, score, 9, "cur=%d prev=%d", i, j)
		}
		assert.LessOrEqual(t, FScore(cur, nil), 4)
	}
}

func TestZScore(t *testing.T) {
	cur := strongCompany().Current

	z := ZScore(cur, 50)
	require.NotNil(t, z)
	// X1=0.2 X2=0.3 X3=0.15 X4=5,000,000/400,000=12.5 X5=0.8
	expected := 1.2*0.2 + 1.4*0.3 + 3.3*0.15 + 0.6*12.5 + 1.0*0.8
	assert.InDelta(t, expected, *z, 1e-9)

	// 가격 없음 → 장부가 자기자본
	book := ZScore(cur, 0)
	require.NotNil(t, book)
	assert.InDelta(t, 1.2*0.2+1.4*0.3+3.3*0.15+0.6*1.5+1.0*0.8, *book, 1e-9)
}

func TestZScore_ZeroAssetsIsAbsent(t *testing.T) {
	assert.Nil(t, ZScore(contracts.FundamentalPeriod{Revenue: 10}, 100))
}

func TestZScore_NoLiabilitiesCapsEquityRatio(t *testing.T) {
	cur := contracts.FundamentalPeriod{TotalAssets: 100}
	z := ZScore(cur, 10)
	require.NotNil(t, z)
	assert.InDelta(t, 6.0, *z, 1e-9)
}

func TestMeetsRequirements(t *testing.T) {
	f := func(v int) *int { return &v }
	z := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		m    contracts.FinancialHealthMetrics
		want bool
	}{
		{"both absent", contracts.FinancialHealthMetrics{}, false},
		{"f absent", contracts.FinancialHealthMetrics{ZScore: z(3)}, false},
		{"z absent", contracts.FinancialHealthMetrics{FScore: f(9)}, false},
		{"f below", contracts.FinancialHealthMetrics{FScore: f(6), ZScore: z(3)}, false},
		{"z below", contracts.FinancialHealthMetrics{FScore: f(8), ZScore: z(1.8)}, false},
		{"at thresholds", contracts.FinancialHealthMetrics{FScore: f(7), ZScore: z(1.81)}, true},
		{"strong", contracts.FinancialHealthMetrics{FScore: f(9), ZScore: z(4.2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeetsRequirements(tt.m, 7, 1.81))
		})
	}
}

func TestEvaluate_StrongCompany(t *testing.T) {
	fund := &fakeFundamentals{data: map[string]*contracts.CompanyFundamentals{"GOOD": strongCompany()}}
	e := newTestEvaluator(fund, &fakePrices{prices: map[string]float64{"GOOD": 50}})

	m, err := e.Evaluate(context.Background(), "GOOD")
	require.NoError(t, err)
	require.NotNil(t, m.FScore)
	require.NotNil(t, m.ZScore)
	assert.Equal(t, 9, *m.FScore)
	assert.False(t, math.IsInf(*m.ZScore, 0) || math.IsNaN(*m.ZScore))
	assert.InDelta(t, 0.08, m.ROA, 1e-9)
	assert.InDelta(t, 2.0, m.CurrentRatio, 1e-9)
	assert.InDelta(t, 0.005, m.MarketCapBillions, 1e-12)
	assert.True(t, e.MeetsRequirements(m))
}

func TestEvaluate_MissingFundamentals(t *testing.T) {
	e := newTestEvaluator(&fakeFundamentals{}, nil)

	m, err := e.Evaluate(context.Background(), "NEW")
	require.NoError(t, err)
	assert.Equal(t, "NEW", m.Symbol)
	assert.Nil(t, m.FScore)
	assert.Nil(t, m.ZScore)
	assert.False(t, e.MeetsRequirements(m))
}

func TestEvaluate_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("dataset offline")
	e := newTestEvaluator(&fakeFundamentals{errs: map[string]error{"X": boom}}, nil)

	m, err := e.Evaluate(context.Background(), "X")
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.HasScores())
}

func TestEvaluate_PriceFailureFallsBackToBookEquity(t *testing.T) {
	fund := &fakeFundamentals{data: map[string]*contracts.CompanyFundamentals{"GOOD": strongCompany()}}
	e := newTestEvaluator(fund, &fakePrices{err: errors.New("quote feed down")})

	m, err := e.Evaluate(context.Background(), "GOOD")
	require.NoError(t, err)
	require.NotNil(t, m.ZScore)
	assert.InDelta(t, *ZScore(strongCompany().Current, 0), *m.ZScore, 1e-9)
	assert.Zero(t, m.MarketCapBillions)
}

func TestEvaluateBatch_OneEntryPerSymbolEvenWhenAllFail(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F", "G"}
	errs := make(map[string]error, len(symbols))
	for _, s := range symbols {
		errs[s] = fmt.Errorf("fail %s", s)
	}
	e := newTestEvaluator(&fakeFundamentals{errs: errs}, nil)

	results := e.EvaluateBatch(context.Background(), symbols)
	require.Len(t, results, len(symbols))
	for _, s := range symbols {
		m, ok := results[s]
		require.True(t, ok, s)
		assert.Equal(t, s, m.Symbol)
		assert.False(t, m.HasScores())
	}
}

func TestEvaluateBatchDetailed_ReportsErrorsAndDedupes(t *testing.T) {
	boom := errors.New("boom")
	fund := &fakeFundamentals{
		data: map[string]*contracts.CompanyFundamentals{"GOOD": strongCompany()},
		errs: map[string]error{"BAD": boom},
	}
	e := newTestEvaluator(fund, &fakePrices{prices: map[string]float64{"GOOD": 50}})

	results := e.EvaluateBatchDetailed(context.Background(), []string{"GOOD", "BAD", "GOOD", " GOOD", " "})
	require.Len(t, results, 4)
	assert.NoError(t, results["GOOD"].Err)
	assert.Equal(t, 9, *results["GOOD"].Metrics.FScore)
	assert.ErrorIs(t, results["BAD"].Err, boom)
	assert.ErrorIs(t, results[" "].Err, ErrEmptySymbol)
	assert.False(t, results[" "].Metrics.HasScores())
	assert.Equal(t, 2, fund.calls)

	padded, ok := results[" GOOD"]
	require.True(t, ok, "untrimmed input keeps its own key")
	assert.Equal(t, "GOOD", padded.Metrics.Symbol)
	assert.Equal(t, 9, *padded.Metrics.FScore)
}

func TestEvaluateBatch_BoundedConcurrency(t *testing.T) {
	fund := &fakeFundamentals{block: 20 * time.Millisecond}
	e := newTestEvaluator(fund, nil)

	symbols := make([]string, 20)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}
	results := e.EvaluateBatch(context.Background(), symbols)

	assert.Len(t, results, 20)
	assert.LessOrEqual(t, int(fund.peak.Load()), DefaultConfig().BatchConcurrency)
}

func TestEvaluateBatch_CancelledContext(t *testing.T) {
	fund := &fakeFundamentals{}
	e := newTestEvaluator(fund, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := e.EvaluateBatchDetailed(ctx, []string{"A", "B", "C"})
	require.Len(t, results, 3)
	for _, entry := range results {
		assert.ErrorIs(t, entry.Err, context.Canceled)
		assert.False(t, entry.Metrics.HasScores())
	}
	assert.Zero(t, fund.calls)
}
