package strategy

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

var testAsOf = time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

func days(n int) time.Time {
	return testAsOf.AddDate(0, 0, n)
}

func testSettings(minDays, maxDays int) Settings {
	return Settings{
		ExpiryMinDays:       minDays,
		ExpiryMaxDays:       maxDays,
		MinConfidence:       0.6,
		GlobalMinConfidence: 0.6,
		MinFScore:           7,
		MinZScore:           1.81,
	}
}

func allStrategies() []Strategy {
	log := logger.NewNop()
	return []Strategy{
		NewTrendSeller(testSettings(7, 30), log),
		NewVolatilitySeller(testSettings(14, 45), log),
		NewDividendSeller(testSettings(21, 60), log),
	}
}

func put(strike float64, dte int, bid, ask, delta, iv, theta float64) contracts.OptionContract {
	return contracts.OptionContract{
		Type:              contracts.OptionPut,
		Strike:            strike,
		Expiry:            days(dte),
		Bid:               bid,
		Ask:               ask,
		Delta:             delta,
		Theta:             theta,
		ImpliedVolatility: iv,
	}
}

// healthyData is an uptrending dividend payer with a put chain that every variant can trade
func healthyData() contracts.AggregatedMarketData {
	f, z := 8, 3.0
	lastEx, nextEx := days(-40), days(50)

	return contracts.AggregatedMarketData{
		Symbol: "KO",
		AsOf:   testAsOf,
		Price: &contracts.PriceSnapshot{
			Price: 100, SMA20: 95, SMA50: 90, SMA200: 85,
			RSI: 55, MACD: 1.2, MACDSignal: 0.8,
			High52W: 110, Low52W: 70,
		},
		Trend: &contracts.TrendAnalysis{Direction: contracts.TrendUp, Strength: 0.7, Confidence: 0.8},
		Options: []contracts.OptionContract{
			put(91, 21, 1.0, 1.2, -0.22, 0.30, -0.04),
			put(88, 30, 1.4, 1.6, -0.18, 0.40, -0.05),
			put(89, 30, 1.4, 1.6, -0.20, 0.40, -0.05),
			put(90, 30, 1.4, 1.6, -0.25, 0.40, -0.05),
			put(92, 30, 1.4, 1.6, -0.28, 0.40, -0.05),
			put(91, 35, 0.9, 1.1, -0.20, 0.30, -0.03),
			// 콜/ITM/만기 범위 밖은 무시
			{Type: contracts.OptionCall, Strike: 105, Expiry: days(21), Bid: 2, Ask: 2.2, ImpliedVolatility: 0.3},
			put(105, 21, 6, 6.2, -0.6, 0.3, -0.1),
			put(90, 200, 5, 5.2, -0.2, 0.3, -0.01),
		},
		Dividend: &contracts.DividendInfo{
			Yield: 0.025, AnnualAmount: 2.5, Frequency: 4,
			LastExDate: &lastEx, NextExDate: &nextEx,
		},
		Health: &contracts.FinancialHealthMetrics{Symbol: "KO", FScore: &f, ZScore: &z},
	}
}

func assertValid(t *testing.T, data contracts.AggregatedMarketData, recs []contracts.Recommendation) {
	t.Helper()
	for _, r := range recs {
		assert.Equal(t, data.Symbol, r.Symbol)
		assert.Less(t, r.Strike, data.Price.Price)
		assert.InDelta(t, r.Strike-r.Premium, r.Breakeven, 1e-9)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		assert.True(t, r.IsActive)
		assert.Equal(t, 8, *r.FScore)
	}
}

func TestStrategies_EmptyOptionsYieldNothing(t *testing.T) {
	data := healthyData()
	data.Options = []contracts.OptionContract{}

	for _, s := range allStrategies() {
		t.Run(s.Name(), func(t *testing.T) {
			recs, err := s.Analyze(context.Background(), data)
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestStrategies_MissingDataYieldsNothing(t *testing.T) {
	cases := map[string]func(d *contracts.AggregatedMarketData){
		"no price":  func(d *contracts.AggregatedMarketData) { d.Price = nil },
		"no trend":  func(d *contracts.AggregatedMarketData) { d.Trend = nil },
		"no health": func(d *contracts.AggregatedMarketData) { d.Health = nil },
		"unhealthy": func(d *contracts.AggregatedMarketData) {
			f := 4
			d.Health = &contracts.FinancialHealthMetrics{Symbol: d.Symbol, FScore: &f, ZScore: d.Health.ZScore}
		},
		"unknown scores": func(d *contracts.AggregatedMarketData) {
			h := contracts.UnknownHealth(d.Symbol, testAsOf)
			d.Health = &h
		},
	}

	for name, mutate := range cases {
		for _, s := range allStrategies() {
			t.Run(name+"/"+s.Name(), func(t *testing.T) {
				data := healthyData()
				mutate(&data)
				recs, err := s.Analyze(context.Background(), data)
				require.NoError(t, err)
				assert.Empty(t, recs)
			})
		}
	}
}

func TestStrategies_ProduceValidRecommendations(t *testing.T) {
	data := healthyData()

	expected := map[string]int{
		TrendSellerName:      1,
		VolatilitySellerName: 3,
		DividendSellerName:   1,
	}

	for _, s := range allStrategies() {
		t.Run(s.Name(), func(t *testing.T) {
			recs, err := s.Analyze(context.Background(), data)
			require.NoError(t, err)
			require.Len(t, recs, expected[s.Name()])
			assertValid(t, data, recs)

			for _, r := range recs {
				assert.Equal(t, s.Name(), r.StrategyName)
				assert.GreaterOrEqual(t, r.DaysToExpiry, s.TargetExpiryMinDays())
				assert.LessOrEqual(t, r.DaysToExpiry, s.TargetExpiryMaxDays())
			}
			for i := 1; i < len(recs); i++ {
				assert.GreaterOrEqual(t, recs[i-1].Confidence, recs[i].Confidence)
			}
		})
	}
}

func TestTrendSeller_RejectsBearishTrend(t *testing.T) {
	s := NewTrendSeller(testSettings(7, 30), logger.NewNop())

	for _, dir := range []contracts.TrendDirection{contracts.TrendDown, contracts.TrendStrongDown} {
		data := healthyData()
		data.Trend = &contracts.TrendAnalysis{Direction: dir, Strength: 0.9, Confidence: 0.9}
		recs, err := s.Analyze(context.Background(), data)
		require.NoError(t, err)
		assert.Empty(t, recs, dir)
	}

	data := healthyData()
	data.Trend.Confidence = 0.3
	recs, err := s.Analyze(context.Background(), data)
	require.NoError(t, err)
	assert.Empty(t, recs, "low trend confidence")
}

func TestTrendSeller_RejectsHighDelta(t *testing.T) {
	s := NewTrendSeller(testSettings(7, 30), logger.NewNop())
	data := healthyData()
	data.Options = []contracts.OptionContract{put(91, 21, 1.0, 1.2, -0.45, 0.30, -0.04)}

	recs, err := s.Analyze(context.Background(), data)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestVolatilitySeller_RequiresIVRegime(t *testing.T) {
	s := NewVolatilitySeller(testSettings(14, 45), logger.NewNop())

	data := healthyData()
	for i := range data.Options {
		data.Options[i].ImpliedVolatility = 0.12
	}
	recs, err := s.Analyze(context.Background(), data)
	require.NoError(t, err)
	assert.Empty(t, recs)

	data = healthyData()
	data.Trend.Direction = contracts.TrendStrongDown
	recs, err = s.Analyze(context.Background(), data)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDividendSeller_ExDatePenalty(t *testing.T) {
	s := NewDividendSeller(testSettings(21, 60), logger.NewNop())

	far := healthyData()
	far.Options = []contracts.OptionContract{put(91, 35, 0.9, 1.1, -0.20, 0.30, -0.03)}
	farRecs, err := s.Analyze(context.Background(), far)
	require.NoError(t, err)
	require.Len(t, farRecs, 1)

	near := healthyData()
	near.Options = far.Options
	nextEx := days(33)
	near.Dividend.NextExDate = &nextEx
	nearRecs, err := s.Analyze(context.Background(), near)
	require.NoError(t, err)
	require.Len(t, nearRecs, 1)

	assert.InDelta(t, farRecs[0].Confidence*0.9, nearRecs[0].Confidence, 1e-9)
	// 배당 포함 수익률이 옵션 프리미엄만의 수익률보다 커야 함
	assert.Greater(t, farRecs[0].ExpectedGrowth, AnnualizedReturn(1.0, 91, 35))
}

func TestDividendSeller_RequiresDividendProfile(t *testing.T) {
	s := NewDividendSeller(testSettings(21, 60), logger.NewNop())

	cases := map[string]func(d *contracts.AggregatedMarketData){
		"no dividend": func(d *contracts.AggregatedMarketData) { d.Dividend = nil },
		"yield high":  func(d *contracts.AggregatedMarketData) { d.Dividend.Yield = 0.12 },
		"yield low":   func(d *contracts.AggregatedMarketData) { d.Dividend.Yield = 0.005 },
		"no ex date":  func(d *contracts.AggregatedMarketData) { d.Dividend.LastExDate = nil },
		"stale ex date": func(d *contracts.AggregatedMarketData) {
			old := days(-200)
			d.Dividend.LastExDate = &old
		},
		"weak momentum": func(d *contracts.AggregatedMarketData) {
			d.Price.Price = 80
			d.Trend.Strength = 0
			d.Price.MACD = 0
			d.Options = []contracts.OptionContract{put(75, 35, 0.9, 1.1, -0.2, 0.3, -0.03)}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			data := healthyData()
			mutate(&data)
			recs, err := s.Analyze(context.Background(), data)
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestStrategies_ConfidenceClampedForAdversarialInputs(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)

	fixtures := []func(d *contracts.AggregatedMarketData){
		func(d *contracts.AggregatedMarketData) {
			d.Price.SMA20, d.Price.SMA50, d.Price.RSI = nan, inf, inf
			d.Trend.Strength = inf
		},
		func(d *contracts.AggregatedMarketData) {
			d.Trend.Strength = -inf
			d.Trend.Confidence = nan
			for i := range d.Options {
				d.Options[i].Delta = nan
				d.Options[i].Theta = inf
			}
		},
		func(d *contracts.AggregatedMarketData) {
			d.Dividend.Yield = nan
			d.Dividend.AnnualAmount = inf
			for i := range d.Options {
				d.Options[i].ImpliedVolatility = -inf
				d.Options[i].Bid = math.MaxFloat64
				d.Options[i].Ask = math.MaxFloat64
			}
		},
		func(d *contracts.AggregatedMarketData) {
			d.Price.High52W, d.Price.Low52W = 1e300, -1e300
			d.Trend.Strength = 1e9
			for i := range d.Options {
				d.Options[i].Last = 1e12
				d.Options[i].Bid = 0
			}
		},
	}

	for i, mutate := range fixtures {
		for _, s := range allStrategies() {
			data := healthyData()
			mutate(&data)

			recs, err := s.Analyze(context.Background(), data)
			require.NoError(t, err, "fixture %d %s", i, s.Name())
			for _, r := range recs {
				assert.False(t, math.IsNaN(r.Confidence), "fixture %d %s", i, s.Name())
				assert.GreaterOrEqual(t, r.Confidence, 0.0, "fixture %d %s", i, s.Name())
				assert.LessOrEqual(t, r.Confidence, 1.0, "fixture %d %s", i, s.Name())
			}
		}
	}
}
