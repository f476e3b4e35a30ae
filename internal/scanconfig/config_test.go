package scanconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Scan.InterSymbolDelay)
	assert.Equal(t, 0.6, cfg.Scan.MinConfidence)
	assert.Equal(t, PolicyBestPerSymbol, cfg.Scan.SelectionPolicy)
	assert.Equal(t, 7, cfg.Health.MinFScore)
	assert.InDelta(t, 1.81, cfg.Health.MinZScore, 1e-9)
	assert.Equal(t, 5, cfg.Health.BatchConcurrency)
	assert.Equal(t, 100, cfg.Refresh.BatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Refresh.StaleAfter)
	assert.True(t, cfg.Universe.FallbackToWatchlist)
	assert.False(t, cfg.Universe.DiscoveryEnabled)
	assert.NotEmpty(t, cfg.Universe.StaticSymbols)
	assert.True(t, cfg.Strategies.TrendSeller.Enabled)
	assert.Equal(t, 45, cfg.Strategies.VolatilitySeller.ExpiryMaxDays)
}

func TestParse_OverridesKeepFalse(t *testing.T) {
	yml := []byte(`
scan:
  inter_symbol_delay: 250ms
  selection_policy: keep_all_above_threshold
universe:
  fallback_to_watchlist: false
  static_symbols: [SPY, QQQ]
strategies:
  dividend_seller:
    enabled: false
    expiry_min_days: 30
    expiry_max_days: 60
`)

	cfg, err := Parse(yml)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Scan.InterSymbolDelay)
	assert.Equal(t, PolicyKeepAllAboveThreshold, cfg.Scan.SelectionPolicy)
	assert.False(t, cfg.Universe.FallbackToWatchlist, "explicit false must survive defaults")
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Universe.StaticSymbols)
	assert.False(t, cfg.Strategies.DividendSeller.Enabled)
	assert.True(t, cfg.Strategies.TrendSeller.Enabled, "untouched blocks keep defaults")
}

func TestParse_RejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("scan:\n  min_confidance: 0.5\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"confidence above one", func(c *Config) { c.Scan.MinConfidence = 1.2 }, "scan.min_confidence"},
		{"unknown policy", func(c *Config) { c.Scan.SelectionPolicy = "random" }, "scan.selection_policy"},
		{"f-score out of range", func(c *Config) { c.Health.MinFScore = 10 }, "health.min_f_score"},
		{"zero concurrency", func(c *Config) { c.Health.BatchConcurrency = 0 }, "health.batch_concurrency"},
		{"inverted window", func(c *Config) { c.Strategies.TrendSeller.ExpiryMinDays = 40 }, "strategies.trend_seller"},
		{"bad cron", func(c *Config) { c.Schedule.ScanCron = "every day" }, "schedule.scan_cron"},
		{"healthy threshold below gate", func(c *Config) { c.Refresh.HealthyMinFScore = 5 }, "refresh.healthy_min_f_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = Validate(cfg)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Field, tt.field)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, raw, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.NotNil(t, cfg)

	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("health:\n  min_f_score: 8\nrefresh:\n  healthy_min_f_score: 8\n"), 0o600))

	cfg, raw, err = Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, 8, cfg.Health.MinFScore)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, _ := Hash(b)
	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)

	b.Scan.MinConfidence = 0.65
	hc, _ := Hash(b)
	assert.NotEqual(t, ha, hc)
}

func TestEffectiveMinConfidence(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.EffectiveMinConfidence(cfg.Strategies.TrendSeller))
	assert.Equal(t, 0.7, cfg.EffectiveMinConfidence(Strategy{MinConfidence: 0.7}))
}
