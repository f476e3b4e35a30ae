package strategy

import (
	"context"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// VolatilitySellerName identifies the volatility-premium seller
const VolatilitySellerName = "volatility_seller"

// Implied volatility regime the variant trades in
const (
	volMinAverageIV  = 0.25
	volMaxAverageIV  = 0.60
	volMinContractIV = 0.25
	volMaxCandidates = 3
)

// VolatilitySeller harvests elevated implied volatility
type VolatilitySeller struct {
	base
}

// NewVolatilitySeller creates the volatility-premium variant
func NewVolatilitySeller(settings Settings, log *logger.Logger) *VolatilitySeller {
	return &VolatilitySeller{
		base: newBase(VolatilitySellerName, "Puts on names with rich implied volatility", settings, log),
	}
}

// Analyze keeps the top 3 candidates by confidence, then premium
func (s *VolatilitySeller) Analyze(ctx context.Context, data contracts.AggregatedMarketData) ([]contracts.Recommendation, error) {
	if !s.ready(data) {
		return nil, nil
	}

	avgIV, ok := averageIV(data.Options)
	if !ok || !between(avgIV, volMinAverageIV, volMaxAverageIV) {
		s.logger.WithFields(map[string]interface{}{
			"symbol": data.Symbol,
			"avg_iv": avgIV,
		}).Debug("Implied volatility outside regime")
		return nil, nil
	}
	if data.Trend.Direction == contracts.TrendStrongDown {
		s.logger.WithSymbol(data.Symbol).Debug("Strong downtrend, skipping")
		return nil, nil
	}

	asOf := s.asOf(data)
	tScore := trendScore(data.Trend)
	techScore := technicalScore(data.Price)

	cands := s.eligiblePuts(data, asOf)
	kept := cands[:0]
	for _, c := range cands {
		iv := c.option.ImpliedVolatility
		if !between(c.margin, 0.04, 0.18) || !(iv >= volMinContractIV) || c.annualized < 0.15 {
			continue
		}

		c.confidence = clamp01(0.35*ivFitScore(iv) +
			0.25*optionScore(c.annualized, c.option.Delta, c.margin) +
			0.20*techScore +
			0.15*tScore +
			0.05*thetaScore(c.option.Theta, c.dte, c.premium))
		c.growth = c.annualized
		kept = append(kept, c)
	}

	return s.recommendations(data, top(kept, volMaxCandidates, s.settings.MinConfidence)), nil
}
