package health

import (
	"github.com/wonny/thetascan/internal/contracts"
)

// maxFScore is the number of Piotroski criteria
const maxFScore = 9

// zScoreEquityCap bounds X4 when a company reports no liabilities
const zScoreEquityCap = 10.0

// ratio returns num/den and false when den is zero
func ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// FScore computes the modified Piotroski score.
// Year-over-year criteria are skipped (no point, no penalty) when prev is nil,
// so a single-period company can score at most 3.
func FScore(cur contracts.FundamentalPeriod, prev *contracts.FundamentalPeriod) int {
	score := 0
	award := func(ok bool) {
		if ok {
			score++
		}
	}

	roa, hasROA := ratio(cur.NetIncome, cur.TotalAssets)

	// 1. ROA > 0
	award(hasROA && roa > 0)
	// 2. 영업현금흐름 > 0
	award(cur.OperatingCashFlow > 0)
	// 4. 발생액 품질: 영업현금흐름 > 순이익
	award(cur.OperatingCashFlow > cur.NetIncome)

	if prev == nil {
		return score
	}

	// 3. ROA 개선
	prevROA, hasPrevROA := ratio(prev.NetIncome, prev.TotalAssets)
	award(hasROA && hasPrevROA && roa > prevROA)

	// 5. 장기부채/자산 감소
	lev, okLev := ratio(cur.LongTermDebt, cur.TotalAssets)
	prevLev, okPrevLev := ratio(prev.LongTermDebt, prev.TotalAssets)
	award(okLev && okPrevLev && lev < prevLev)

	// 6. 유동비율 개선
	cr, okCR := ratio(cur.CurrentAssets, cur.CurrentLiabilities)
	prevCR, okPrevCR := ratio(prev.CurrentAssets, prev.CurrentLiabilities)
	award(okCR && okPrevCR && cr > prevCR)

	// 7. 희석 없음
	award(cur.SharesOutstanding > 0 && prev.SharesOutstanding > 0 && cur.SharesOutstanding <= prev.SharesOutstanding)

	// 8. 영업이익률 개선
	margin, okMargin := ratio(cur.OperatingIncome, cur.Revenue)
	prevMargin, okPrevMargin := ratio(prev.OperatingIncome, prev.Revenue)
	award(okMargin && okPrevMargin && margin > prevMargin)

	// 9. 자산회전율 개선
	turn, okTurn := ratio(cur.Revenue, cur.TotalAssets)
	prevTurn, okPrevTurn := ratio(prev.Revenue, prev.TotalAssets)
	award(okTurn && okPrevTurn && turn > prevTurn)

	return min(score, maxFScore)
}

// ZScore computes the public-company Altman Z-Score.
// Returns nil when total assets is zero. price <= 0 falls back to book equity for X4.
func ZScore(cur contracts.FundamentalPeriod, price float64) *float64 {
	if cur.TotalAssets == 0 {
		return nil
	}
	assets := cur.TotalAssets

	x1 := (cur.CurrentAssets - cur.CurrentLiabilities) / assets
	x2 := cur.RetainedEarnings / assets
	x3 := cur.OperatingIncome / assets
	x5 := cur.Revenue / assets

	x4 := zScoreEquityCap
	if cur.TotalLiabilities != 0 {
		x4 = MarketValueOfEquity(cur, price) / cur.TotalLiabilities
	}

	z := 1.2*x1 + 1.4*x2 + 3.3*x3 + 0.6*x4 + 1.0*x5
	return &z
}

// MarketValueOfEquity is price × shares, or book equity when no price is available
func MarketValueOfEquity(cur contracts.FundamentalPeriod, price float64) float64 {
	if price > 0 && cur.SharesOutstanding > 0 {
		return price * cur.SharesOutstanding
	}
	return cur.ShareholdersEquity
}

// MeetsRequirements is the health gate: both scores present and at or above the minimums
func MeetsRequirements(m contracts.FinancialHealthMetrics, minFScore int, minZScore float64) bool {
	if m.FScore == nil || m.ZScore == nil {
		return false
	}
	return *m.FScore >= minFScore && *m.ZScore >= minZScore
}
