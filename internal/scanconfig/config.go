package scanconfig

import "time"

// Config는 스캔 한 사이클의 모든 임계값
// Defaults come from the `default` tags, validation rules from the `validate` tags.
type Config struct {
	Scan       Scan       `yaml:"scan" json:"scan"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Health     Health     `yaml:"health" json:"health"`
	Refresh    Refresh    `yaml:"refresh" json:"refresh"`
	Strategies Strategies `yaml:"strategies" json:"strategies"`
	Schedule   Schedule   `yaml:"schedule" json:"schedule"`
}

// Selection policies
const (
	PolicyBestPerSymbol         = "best_per_symbol"
	PolicyKeepAllAboveThreshold = "keep_all_above_threshold"
)

// Scan controls the orchestrator loop
type Scan struct {
	InterSymbolDelay   time.Duration `yaml:"inter_symbol_delay" json:"inter_symbol_delay" default:"1s" validate:"gte=0"`
	MinConfidence      float64       `yaml:"min_confidence" json:"min_confidence" default:"0.6" validate:"gte=0,lte=1"`
	SelectionPolicy    string        `yaml:"selection_policy" json:"selection_policy" default:"best_per_symbol" validate:"oneof=best_per_symbol keep_all_above_threshold"`
	ErrorSummaryLimit  int           `yaml:"error_summary_limit" json:"error_summary_limit" default:"5" validate:"gte=1"`
	ErrorSummaryMaxLen int           `yaml:"error_summary_max_len" json:"error_summary_max_len" default:"1000" validate:"gte=16"`
}

// Universe controls symbol resolution and the health pre-filter
type Universe struct {
	DiscoveryEnabled    bool     `yaml:"discovery_enabled" json:"discovery_enabled"`
	FallbackToWatchlist bool     `yaml:"fallback_to_watchlist" json:"fallback_to_watchlist" default:"true"`
	PrefilterEnabled    bool     `yaml:"prefilter_enabled" json:"prefilter_enabled" default:"true"`
	StaticSymbols       []string `yaml:"static_symbols" json:"static_symbols" default:"[\"AAPL\",\"MSFT\",\"KO\",\"JNJ\",\"PG\",\"JPM\",\"XOM\",\"PEP\"]" validate:"min=1,dive,required"`
}

// Health holds the financial health gate
type Health struct {
	MinFScore        int     `yaml:"min_f_score" json:"min_f_score" default:"7" validate:"gte=0,lte=9"`
	MinZScore        float64 `yaml:"min_z_score" json:"min_z_score" default:"1.81"`
	BatchConcurrency int     `yaml:"batch_concurrency" json:"batch_concurrency" default:"5" validate:"gte=1,lte=64"`
}

// Refresh controls the bulk fundamentals refresher
type Refresh struct {
	BatchSize        int           `yaml:"batch_size" json:"batch_size" default:"100" validate:"gte=1"`
	BatchDelay       time.Duration `yaml:"batch_delay" json:"batch_delay" default:"2s" validate:"gte=0"`
	StaleAfter       time.Duration `yaml:"stale_after" json:"stale_after" default:"168h" validate:"gt=0"`
	HealthyMinFScore int           `yaml:"healthy_min_f_score" json:"healthy_min_f_score" default:"7" validate:"gte=0,lte=9"`
}

// Strategies holds one block per registered variant
type Strategies struct {
	TrendSeller      Strategy `yaml:"trend_seller" json:"trend_seller" default:"{\"enabled\":true,\"expiry_min_days\":7,\"expiry_max_days\":30}"`
	VolatilitySeller Strategy `yaml:"volatility_seller" json:"volatility_seller" default:"{\"enabled\":true,\"expiry_min_days\":14,\"expiry_max_days\":45}"`
	DividendSeller   Strategy `yaml:"dividend_seller" json:"dividend_seller" default:"{\"enabled\":true,\"expiry_min_days\":21,\"expiry_max_days\":60}"`
}

// Strategy is the per-variant block. MinConfidence 0 means the scan-wide minimum.
type Strategy struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	ExpiryMinDays int     `yaml:"expiry_min_days" json:"expiry_min_days" validate:"gte=1"`
	ExpiryMaxDays int     `yaml:"expiry_max_days" json:"expiry_max_days" validate:"gte=1,lte=365"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
}

// Schedule holds cron expressions (with seconds) for the scheduler
type Schedule struct {
	ScanCron             string        `yaml:"scan_cron" json:"scan_cron" default:"0 30 16 * * 1-5" validate:"required"`
	RefreshCron          string        `yaml:"refresh_cron" json:"refresh_cron" default:"0 0 6 * * 6" validate:"required"`
	MaintenanceCron      string        `yaml:"maintenance_cron" json:"maintenance_cron" default:"0 0 3 * * *" validate:"required"`
	RecommendationMaxAge time.Duration `yaml:"recommendation_max_age" json:"recommendation_max_age" default:"720h" validate:"gt=0"`
}

// EffectiveMinConfidence resolves a strategy's own floor against the scan-wide one
func (c *Config) EffectiveMinConfidence(s Strategy) float64 {
	if s.MinConfidence > 0 {
		return s.MinConfidence
	}
	return c.Scan.MinConfidence
}
