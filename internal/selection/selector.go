package selection

import (
	"fmt"
	"sort"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/scanconfig"
	"github.com/wonny/thetascan/pkg/logger"
)

// Selector reduces one scan's recommendations to what gets persisted
// ⭐ SSOT: 저장 정책(심볼당 최고 vs 임계값 이상 전체)은 여기서만
type Selector struct {
	policy        string
	minConfidence float64
	logger        *logger.Logger
}

// NewSelector creates a selector for one of the scanconfig policies
func NewSelector(policy string, minConfidence float64, log *logger.Logger) (*Selector, error) {
	switch policy {
	case scanconfig.PolicyBestPerSymbol, scanconfig.PolicyKeepAllAboveThreshold:
	default:
		return nil, fmt.Errorf("unknown selection policy %q", policy)
	}
	return &Selector{
		policy:        policy,
		minConfidence: minConfidence,
		logger:        log.Module("selection"),
	}, nil
}

// Policy returns the active policy name
func (s *Selector) Policy() string {
	return s.policy
}

// Select groups by symbol, applies the policy and returns the deterministic ordering:
// confidence desc, symbol asc, days-to-expiry asc.
func (s *Selector) Select(recs []contracts.Recommendation) []contracts.Recommendation {
	var selected []contracts.Recommendation

	switch s.policy {
	case scanconfig.PolicyKeepAllAboveThreshold:
		selected = make([]contracts.Recommendation, 0, len(recs))
		for _, r := range recs {
			if r.Confidence >= s.minConfidence {
				selected = append(selected, r)
			}
		}
	default:
		selected = bestPerSymbol(recs)
	}

	Order(selected)

	s.logger.WithFields(map[string]interface{}{
		"policy":   s.policy,
		"input":    len(recs),
		"selected": len(selected),
	}).Debug("Recommendations selected")

	return selected
}

// bestPerSymbol keeps the highest-confidence recommendation of every symbol
func bestPerSymbol(recs []contracts.Recommendation) []contracts.Recommendation {
	best := make(map[string]contracts.Recommendation, len(recs))
	order := make([]string, 0)

	for _, r := range recs {
		cur, ok := best[r.Symbol]
		if !ok {
			order = append(order, r.Symbol)
			best[r.Symbol] = r
			continue
		}
		if better(r, cur) {
			best[r.Symbol] = r
		}
	}

	out := make([]contracts.Recommendation, 0, len(best))
	for _, symbol := range order {
		out = append(out, best[symbol])
	}
	return out
}

// better breaks ties on premium, then strategy name
func better(a, b contracts.Recommendation) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Premium != b.Premium {
		return a.Premium > b.Premium
	}
	return a.StrategyName < b.StrategyName
}

// Order sorts in place: confidence desc, symbol asc, days-to-expiry asc
func Order(recs []contracts.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.DaysToExpiry < b.DaysToExpiry
	})
}
