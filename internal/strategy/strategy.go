package strategy

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/health"
	"github.com/wonny/thetascan/pkg/logger"
)

// Strategy analyzes one symbol's market data and proposes cash-secured puts.
// "No data" and "no eligible options" return an empty slice, never an error.
type Strategy interface {
	Name() string
	Description() string
	TargetExpiryMinDays() int
	TargetExpiryMaxDays() int
	Analyze(ctx context.Context, data contracts.AggregatedMarketData) ([]contracts.Recommendation, error)
}

// Settings are the thresholds a variant needs from the scan configuration
type Settings struct {
	ExpiryMinDays int
	ExpiryMaxDays int
	// MinConfidence is the variant's own floor for emitted recommendations
	MinConfidence float64
	// GlobalMinConfidence is the scan-wide minimum used by trend and floor checks
	GlobalMinConfidence float64
	MinFScore           int
	MinZScore           float64
}

// base carries what every variant shares
type base struct {
	name        string
	description string
	settings    Settings
	logger      *logger.Logger
	now         func() time.Time
}

func newBase(name, description string, settings Settings, log *logger.Logger) base {
	return base{
		name:        name,
		description: description,
		settings:    settings,
		logger:      log.Module("strategy").WithField("strategy", name),
		now:         time.Now,
	}
}

func (b *base) Name() string             { return b.name }
func (b *base) Description() string      { return b.description }
func (b *base) TargetExpiryMinDays() int { return b.settings.ExpiryMinDays }
func (b *base) TargetExpiryMaxDays() int { return b.settings.ExpiryMaxDays }

// ready checks the shared pre-conditions: price, trend and options present and health gate passed
func (b *base) ready(data contracts.AggregatedMarketData) bool {
	log := b.logger.WithSymbol(data.Symbol)

	if data.Price == nil || data.Price.Price <= 0 || data.Trend == nil {
		log.Debug("Missing price or trend data")
		return false
	}
	if len(data.Options) == 0 {
		log.Debug("No option chain")
		return false
	}
	if data.Health == nil {
		log.Debug("No health metrics attached")
		return false
	}
	if !health.MeetsRequirements(*data.Health, b.settings.MinFScore, b.settings.MinZScore) {
		log.Debug("Health gate not passed")
		return false
	}
	return true
}

func (b *base) asOf(data contracts.AggregatedMarketData) time.Time {
	if data.AsOf.IsZero() {
		return b.now()
	}
	return data.AsOf
}

// candidate is a put inside the expiry window with its derived figures
type candidate struct {
	option     contracts.OptionContract
	dte        int
	premium    float64
	margin     float64
	annualized float64
	confidence float64
	growth     float64
}

// eligiblePuts returns out-of-the-money puts inside the expiry window with a positive premium
func (b *base) eligiblePuts(data contracts.AggregatedMarketData, asOf time.Time) []candidate {
	spot := data.Price.Price
	out := make([]candidate, 0, len(data.Options))

	for _, opt := range data.Options {
		if opt.Type != contracts.OptionPut || opt.Strike <= 0 || opt.Strike >= spot {
			continue
		}
		dte := opt.DaysToExpiry(asOf)
		if dte <= 0 || dte < b.settings.ExpiryMinDays || dte > b.settings.ExpiryMaxDays {
			continue
		}
		premium := opt.Premium()
		if !(premium > 0) || math.IsInf(premium, 0) {
			continue
		}

		out = append(out, candidate{
			option:     opt,
			dte:        dte,
			premium:    premium,
			margin:     SafetyMargin(spot, opt.Strike),
			annualized: AnnualizedReturn(premium, opt.Strike, dte),
		})
	}
	return out
}

// rankCandidates orders by confidence then premium, both descending
func rankCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].confidence != cands[j].confidence {
			return cands[i].confidence > cands[j].confidence
		}
		return cands[i].premium > cands[j].premium
	})
}

// top keeps the first n ranked candidates at or above the floor
func top(cands []candidate, n int, floor float64) []candidate {
	rankCandidates(cands)
	kept := make([]candidate, 0, n)
	for _, c := range cands {
		if c.confidence < floor {
			continue
		}
		kept = append(kept, c)
		if len(kept) == n {
			break
		}
	}
	return kept
}

// recommendations leaves CreatedAt unset; the run stamps it when collecting
func (b *base) recommendations(data contracts.AggregatedMarketData, cands []candidate) []contracts.Recommendation {
	recs := make([]contracts.Recommendation, 0, len(cands))
	for _, c := range cands {
		rec := contracts.Recommendation{
			Symbol:         data.Symbol,
			StrategyName:   b.name,
			Strike:         c.option.Strike,
			Expiry:         c.option.Expiry,
			DaysToExpiry:   c.dte,
			Premium:        c.premium,
			Breakeven:      c.option.Strike - c.premium,
			Confidence:     clamp01(c.confidence),
			ExpectedGrowth: c.growth,
			IsActive:       true,
		}
		if data.Health != nil {
			rec.FScore = data.Health.FScore
			rec.ZScore = data.Health.ZScore
		}
		recs = append(recs, rec)
	}

	if len(recs) > 0 {
		b.logger.WithFields(map[string]interface{}{
			"symbol":          data.Symbol,
			"recommendations": len(recs),
			"best_confidence": recs[0].Confidence,
			"best_strike":     recs[0].Strike,
		}).Debug("Strategy produced recommendations")
	}
	return recs
}
