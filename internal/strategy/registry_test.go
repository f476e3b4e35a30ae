package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/internal/scanconfig"
	"github.com/wonny/thetascan/pkg/logger"
)

func TestRegistry_RegisterAndLoadAll(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.LoadAll())

	log := logger.NewNop()
	require.NoError(t, reg.Register(NewDividendSeller(testSettings(21, 60), log)))
	require.NoError(t, reg.Register(NewTrendSeller(testSettings(7, 30), log)))

	err := reg.Register(NewTrendSeller(testSettings(7, 30), log))
	assert.Error(t, err)

	all := reg.LoadAll()
	require.Len(t, all, 2)
	assert.Equal(t, DividendSellerName, all[0].Name())
	assert.Equal(t, TrendSellerName, all[1].Name())

	s, ok := reg.Get(TrendSellerName)
	require.True(t, ok)
	assert.Equal(t, 7, s.TargetExpiryMinDays())
	assert.Equal(t, 30, s.TargetExpiryMaxDays())
	assert.NotEmpty(t, s.Description())
}

func TestNewDefaultRegistry(t *testing.T) {
	cfg, err := scanconfig.Default()
	require.NoError(t, err)

	reg, err := NewDefaultRegistry(cfg, logger.NewNop())
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, s := range reg.LoadAll() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{TrendSellerName, VolatilitySellerName, DividendSellerName}, names)

	cfg.Strategies.VolatilitySeller.Enabled = false
	cfg.Strategies.DividendSeller.MinConfidence = 0.75
	reg, err = NewDefaultRegistry(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Len(t, reg.LoadAll(), 2)

	div, ok := reg.Get(DividendSellerName)
	require.True(t, ok)
	assert.Equal(t, 0.75, div.(*DividendSeller).floor())
}
