package strategy

import (
	"context"
	"math"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// TrendSellerName identifies the trend-following short-dated seller
const TrendSellerName = "trend_seller"

// TrendSeller sells short-dated puts under non-bearish trends
type TrendSeller struct {
	base
}

// NewTrendSeller creates the trend-following variant
func NewTrendSeller(settings Settings, log *logger.Logger) *TrendSeller {
	return &TrendSeller{
		base: newBase(TrendSellerName, "Short-dated puts below spot while the trend is not down", settings, log),
	}
}

// Analyze keeps the single best candidate
func (s *TrendSeller) Analyze(ctx context.Context, data contracts.AggregatedMarketData) ([]contracts.Recommendation, error) {
	if !s.ready(data) {
		return nil, nil
	}

	trend := data.Trend
	if trend.Direction.IsBearish() || trend.Confidence < s.settings.GlobalMinConfidence {
		s.logger.WithFields(map[string]interface{}{
			"symbol":     data.Symbol,
			"direction":  trend.Direction,
			"confidence": trend.Confidence,
		}).Debug("Trend filter rejected symbol")
		return nil, nil
	}

	asOf := s.asOf(data)
	tScore := trendScore(trend)
	techScore := technicalScore(data.Price)
	divScore := dividendScore(data.Dividend)

	cands := s.eligiblePuts(data, asOf)
	kept := cands[:0]
	for _, c := range cands {
		if !between(c.margin, 0.05, 0.20) {
			continue
		}
		if math.Abs(c.option.Delta) > 0.30 {
			continue
		}
		if c.annualized < 0.10 {
			continue
		}

		c.confidence = clamp01(0.30*tScore +
			0.25*techScore +
			0.20*optionScore(c.annualized, c.option.Delta, c.margin) +
			0.15*volatilityScore(c.option.ImpliedVolatility) +
			0.10*divScore)
		c.growth = c.annualized
		kept = append(kept, c)
	}

	return s.recommendations(data, top(kept, 1, s.settings.MinConfidence)), nil
}
