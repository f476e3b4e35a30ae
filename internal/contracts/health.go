package contracts

import "time"

// FinancialHealthMetrics is the immutable result of one health evaluation.
// A nil score means the inputs were insufficient, never zero.
type FinancialHealthMetrics struct {
	Symbol            string    `json:"symbol"`
	FScore            *int      `json:"f_score,omitempty"` // 0~9
	ZScore            *float64  `json:"z_score,omitempty"`
	ROA               float64   `json:"roa"`
	DebtToEquity      float64   `json:"debt_to_equity"`
	CurrentRatio      float64   `json:"current_ratio"`
	MarketCapBillions float64   `json:"market_cap_billions"`
	EvaluatedAt       time.Time `json:"evaluated_at"`
}

// HasScores reports whether both scores were computed
func (m FinancialHealthMetrics) HasScores() bool {
	return m.FScore != nil && m.ZScore != nil
}

// UnknownHealth returns metrics with both scores absent
func UnknownHealth(symbol string, at time.Time) FinancialHealthMetrics {
	return FinancialHealthMetrics{Symbol: symbol, EvaluatedAt: at}
}

// FundamentalPeriod holds one reporting period of balance sheet, income and cash flow figures
type FundamentalPeriod struct {
	PeriodEnd          time.Time `json:"period_end"`
	TotalAssets        float64   `json:"total_assets"`
	Cash               float64   `json:"cash"`
	TotalDebt          float64   `json:"total_debt"`
	LongTermDebt       float64   `json:"long_term_debt"`
	CurrentAssets      float64   `json:"current_assets"`
	CurrentLiabilities float64   `json:"current_liabilities"`
	ShareholdersEquity float64   `json:"shareholders_equity"`
	RetainedEarnings   float64   `json:"retained_earnings"`
	TotalLiabilities   float64   `json:"total_liabilities"`
	Revenue            float64   `json:"revenue"`
	OperatingIncome    float64   `json:"operating_income"`
	NetIncome          float64   `json:"net_income"`
	OperatingCashFlow  float64   `json:"operating_cash_flow"`
	SharesOutstanding  float64   `json:"shares_outstanding"`
}

// CompanyFundamentals pairs the latest period with the one before it.
// Previous is nil when only one period is on file.
type CompanyFundamentals struct {
	Symbol   string             `json:"symbol"`
	Current  FundamentalPeriod  `json:"current"`
	Previous *FundamentalPeriod `json:"previous,omitempty"`
}

// BulkRefreshResult summarises one bulk fundamentals refresh. Not persisted.
type BulkRefreshResult struct {
	Total     int           `json:"total"`
	Healthy   int           `json:"healthy"`
	Unhealthy int           `json:"unhealthy"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Processed returns the number of symbols that reached a verdict or failed
func (r BulkRefreshResult) Processed() int {
	return r.Healthy + r.Unhealthy + r.Failed
}
