package contracts

import (
	"strings"
	"time"
)

// TrendDirection classifies the prevailing price trend
type TrendDirection string

const (
	TrendStrongUp   TrendDirection = "STRONG_UP"
	TrendUp         TrendDirection = "UP"
	TrendSideways   TrendDirection = "SIDEWAYS"
	TrendDown       TrendDirection = "DOWN"
	TrendStrongDown TrendDirection = "STRONG_DOWN"
)

var trendSeparators = strings.NewReplacer("_", "", "-", "", " ", "")

// ParseTrendDirection maps stored values onto a direction, ignoring case and separators
// ("StrongDown", "strong-down" and "STRONG_DOWN" are the same). Unknown values return false.
func ParseTrendDirection(s string) (TrendDirection, bool) {
	switch trendSeparators.Replace(strings.ToUpper(strings.TrimSpace(s))) {
	case "STRONGUP":
		return TrendStrongUp, true
	case "UP":
		return TrendUp, true
	case "SIDEWAYS":
		return TrendSideways, true
	case "DOWN":
		return TrendDown, true
	case "STRONGDOWN":
		return TrendStrongDown, true
	default:
		return "", false
	}
}

// IsBearish reports Down and StrongDown
func (d TrendDirection) IsBearish() bool {
	return d == TrendDown || d == TrendStrongDown
}

// OptionType is put or call
type OptionType string

const (
	OptionPut  OptionType = "PUT"
	OptionCall OptionType = "CALL"
)

// PriceSnapshot is the latest price with its technical indicators
type PriceSnapshot struct {
	Price      float64   `json:"price"`
	SMA20      float64   `json:"sma20"`
	SMA50      float64   `json:"sma50"`
	SMA200     float64   `json:"sma200"`
	RSI        float64   `json:"rsi"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macd_signal"`
	High52W    float64   `json:"high_52w"`
	Low52W     float64   `json:"low_52w"`
	Volume     int64     `json:"volume"`
	AvgVolume  int64     `json:"avg_volume"`
	AsOf       time.Time `json:"as_of"`
}

// TrendAnalysis is the trend classifier output, strength and confidence on [0,1]
type TrendAnalysis struct {
	Direction  TrendDirection `json:"direction"`
	Strength   float64        `json:"strength"`
	Confidence float64        `json:"confidence"`
}

// OptionContract is one quoted contract of the chain
type OptionContract struct {
	Type              OptionType `json:"type"`
	Strike            float64    `json:"strike"`
	Expiry            time.Time  `json:"expiry"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	Last              float64    `json:"last"`
	Delta             float64    `json:"delta"`
	Gamma             float64    `json:"gamma"`
	Theta             float64    `json:"theta"`
	Vega              float64    `json:"vega"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	OpenInterest      int64      `json:"open_interest"`
	Volume            int64      `json:"volume"`
}

// Premium is the bid/ask mid, falling back to the last trade
func (o OptionContract) Premium() float64 {
	if o.Bid > 0 && o.Ask > 0 {
		return (o.Bid + o.Ask) / 2
	}
	return o.Last
}

// DaysToExpiry counts whole calendar days from asOf to expiry
func (o OptionContract) DaysToExpiry(asOf time.Time) int {
	from := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(o.Expiry.Year(), o.Expiry.Month(), o.Expiry.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// DividendInfo describes the dividend profile; Yield is a fraction (0.03 = 3%)
type DividendInfo struct {
	Yield        float64    `json:"yield"`
	AnnualAmount float64    `json:"annual_amount"`
	Frequency    int        `json:"frequency"`
	LastExDate   *time.Time `json:"last_ex_date,omitempty"`
	NextExDate   *time.Time `json:"next_ex_date,omitempty"`
}

// AggregatedMarketData is everything a strategy sees for one symbol in one scan
type AggregatedMarketData struct {
	Symbol   string                  `json:"symbol"`
	Price    *PriceSnapshot          `json:"price,omitempty"`
	Trend    *TrendAnalysis          `json:"trend,omitempty"`
	Options  []OptionContract        `json:"options,omitempty"`
	Dividend *DividendInfo           `json:"dividend,omitempty"`
	Health   *FinancialHealthMetrics `json:"health,omitempty"`
	AsOf     time.Time               `json:"as_of"`
}

// WithHealth returns a copy with the health metrics replaced
func (d AggregatedMarketData) WithHealth(h FinancialHealthMetrics) AggregatedMarketData {
	d.Health = &h
	return d
}
