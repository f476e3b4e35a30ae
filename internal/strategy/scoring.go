package strategy

import (
	"math"

	"github.com/wonny/thetascan/internal/contracts"
)

// 모든 하위 점수는 0~1 구간

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}

func between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// SafetyMargin is the distance of the strike below spot as a fraction of spot
func SafetyMargin(spot, strike float64) float64 {
	if spot <= 0 {
		return 0
	}
	return (spot - strike) / spot
}

// AnnualizedReturn scales premium/strike to a 365-day basis
func AnnualizedReturn(premium, strike float64, dte int) float64 {
	if strike <= 0 || dte <= 0 {
		return 0
	}
	return (premium / strike) * 365 / float64(dte)
}

// trendScore blends the direction band (70%) with trend strength (30%)
func trendScore(t *contracts.TrendAnalysis) float64 {
	if t == nil {
		return 0
	}

	var dir float64
	switch t.Direction {
	case contracts.TrendStrongUp:
		dir = 1.0
	case contracts.TrendUp:
		dir = 0.8
	case contracts.TrendSideways:
		dir = 0.5
	case contracts.TrendDown:
		dir = 0.2
	default:
		dir = 0
	}
	return clamp01(0.7*dir + 0.3*clamp01(t.Strength))
}

// technicalScore averages the available binary checks; 0.5 when nothing can be checked
func technicalScore(p *contracts.PriceSnapshot) float64 {
	if p == nil {
		return 0
	}

	var passed, total int
	check := func(ok bool) {
		total++
		if ok {
			passed++
		}
	}

	for _, ma := range []float64{p.SMA20, p.SMA50, p.SMA200} {
		if ma > 0 {
			check(p.Price > ma)
		}
	}
	if p.RSI > 0 {
		check(between(p.RSI, 30, 70))
	}
	if p.MACD != 0 || p.MACDSignal != 0 {
		check(p.MACD > p.MACDSignal)
	}
	if p.High52W > p.Low52W {
		check(p.Price >= (p.High52W+p.Low52W)/2)
	}

	if total == 0 {
		return 0.5
	}
	return float64(passed) / float64(total)
}

// optionScore averages the return band, the delta band and the margin band
func optionScore(annualized, delta, margin float64) float64 {
	ret := clamp01((annualized - 0.10) / 0.30)
	del := clamp01(1 - math.Abs(delta)/0.30)

	mar := 0.6
	if between(margin, 0.08, 0.15) {
		mar = 1.0
	}
	return clamp01((ret + del + mar) / 3)
}

// volatilityScore favours moderately elevated implied volatility
func volatilityScore(iv float64) float64 {
	switch {
	case math.IsNaN(iv) || iv < 0.15:
		return 0.3
	case iv < 0.25:
		return 0.6
	case iv <= 0.45:
		return 1.0
	case iv <= 0.60:
		return 0.7
	default:
		return 0.3
	}
}

// dividendScore bands the yield; no dividend scores 0.3
func dividendScore(d *contracts.DividendInfo) float64 {
	if d == nil || !(d.Yield > 0) {
		return 0.3
	}
	switch y := d.Yield; {
	case y < 0.01:
		return 0.5
	case y <= 0.04:
		return 1.0
	case y <= 0.08:
		return 0.7
	default:
		return 0.2
	}
}

// ivFitScore peaks at 40% implied volatility and reaches 0 at ±20 points
func ivFitScore(iv float64) float64 {
	return clamp01(1 - math.Abs(iv-0.40)/0.20)
}

// thetaScore is the decay still to be collected relative to the premium
func thetaScore(theta float64, dte int, premium float64) float64 {
	if premium <= 0 || dte <= 0 {
		return 0
	}
	return clamp01(math.Abs(theta) * float64(dte) / premium)
}

// rangePosition is where price sits inside the 52-week range, 0.5 when unknown
func rangePosition(p *contracts.PriceSnapshot) float64 {
	if p == nil || !(p.High52W > p.Low52W) {
		return 0.5
	}
	return clamp01((p.Price - p.Low52W) / (p.High52W - p.Low52W))
}

// maPosition is the fraction of available moving averages price is above, 0.5 when none
func maPosition(p *contracts.PriceSnapshot) float64 {
	if p == nil {
		return 0
	}
	var above, total int
	for _, ma := range []float64{p.SMA20, p.SMA50, p.SMA200} {
		if ma > 0 {
			total++
			if p.Price > ma {
				above++
			}
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(above) / float64(total)
}

// momentumScore blends MA position 40%, trend strength 30%, 52-week position 20%, MACD sign 10%
func momentumScore(p *contracts.PriceSnapshot, t *contracts.TrendAnalysis) float64 {
	var strength, macd float64
	if t != nil {
		strength = clamp01(t.Strength)
	}
	// MACD 부호 (0선 위), 시그널 교차는 technicalScore에서 사용
	if p != nil && p.MACD > 0 {
		macd = 1
	}
	return clamp01(0.40*maPosition(p) + 0.30*strength + 0.20*rangePosition(p) + 0.10*macd)
}

// averageIV is the mean implied volatility of contracts that report one
func averageIV(options []contracts.OptionContract) (float64, bool) {
	var sum float64
	var n int
	for _, o := range options {
		if o.ImpliedVolatility > 0 && !math.IsInf(o.ImpliedVolatility, 0) {
			sum += o.ImpliedVolatility
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
