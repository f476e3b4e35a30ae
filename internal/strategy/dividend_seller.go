package strategy

import (
	"context"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/pkg/logger"
)

// DividendSellerName identifies the dividend-momentum conservative seller
const DividendSellerName = "dividend_seller"

const (
	divMinYield        = 0.01
	divMaxYield        = 0.08
	divRecentExWindow  = 180 * 24 * time.Hour
	divMinMomentum     = 0.6
	divMinAnnualized   = 0.08
	divExDateProximity = 5 * 24 * time.Hour
	divExDatePenalty   = 0.9
	divFloorPremium    = 0.05
)

// DividendSeller sells conservative puts on steady dividend payers with momentum
type DividendSeller struct {
	base
}

// NewDividendSeller creates the dividend-momentum variant
func NewDividendSeller(settings Settings, log *logger.Logger) *DividendSeller {
	return &DividendSeller{
		base: newBase(DividendSellerName, "Conservative puts on dividend payers with positive momentum", settings, log),
	}
}

// floor is the stricter confidence floor of this variant
func (s *DividendSeller) floor() float64 {
	return max(s.settings.MinConfidence, s.settings.GlobalMinConfidence+divFloorPremium)
}

// Analyze keeps the single best candidate
func (s *DividendSeller) Analyze(ctx context.Context, data contracts.AggregatedMarketData) ([]contracts.Recommendation, error) {
	if !s.ready(data) {
		return nil, nil
	}

	asOf := s.asOf(data)
	div := data.Dividend
	if div == nil || !between(div.Yield, divMinYield, divMaxYield) {
		s.logger.WithSymbol(data.Symbol).Debug("Dividend yield outside range")
		return nil, nil
	}
	if div.LastExDate == nil || asOf.Sub(*div.LastExDate) > divRecentExWindow || div.LastExDate.After(asOf) {
		s.logger.WithSymbol(data.Symbol).Debug("No recent ex-dividend event")
		return nil, nil
	}

	momentum := momentumScore(data.Price, data.Trend)
	if momentum < divMinMomentum {
		s.logger.WithFields(map[string]interface{}{
			"symbol":   data.Symbol,
			"momentum": momentum,
		}).Debug("Momentum too weak")
		return nil, nil
	}

	annualDividend := div.AnnualAmount
	if annualDividend <= 0 {
		annualDividend = div.Yield * data.Price.Price
	}

	techScore := technicalScore(data.Price)
	divScore := dividendScore(div)

	cands := s.eligiblePuts(data, asOf)
	kept := cands[:0]
	for _, c := range cands {
		if !between(c.margin, 0.03, 0.18) {
			continue
		}

		totalReturn := c.premium + annualDividend*float64(c.dte)/365
		annualized := AnnualizedReturn(totalReturn, c.option.Strike, c.dte)
		if annualized < divMinAnnualized {
			continue
		}

		conf := 0.35*momentum +
			0.25*optionScore(c.annualized, c.option.Delta, c.margin) +
			0.25*divScore +
			0.15*techScore
		if exDateNearExpiry(div.NextExDate, c.option.Expiry) {
			conf *= divExDatePenalty
		}

		c.confidence = clamp01(conf)
		c.growth = annualized
		kept = append(kept, c)
	}

	return s.recommendations(data, top(kept, 1, s.floor())), nil
}

// exDateNearExpiry reports an ex-dividend date within 5 days of expiry, either side
func exDateNearExpiry(next *time.Time, expiry time.Time) bool {
	if next == nil {
		return false
	}
	d := expiry.Sub(*next)
	if d < 0 {
		d = -d
	}
	return d <= divExDateProximity
}
