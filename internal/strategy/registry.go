package strategy

import (
	"fmt"
	"sync"

	"github.com/wonny/thetascan/internal/scanconfig"
	"github.com/wonny/thetascan/pkg/logger"
)

// Registry holds strategy instances in registration order
// ⭐ SSOT: 전략 등록은 여기서만
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
	byName     map[string]Strategy
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Strategy)}
}

// Register adds a strategy; names must be unique
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[s.Name()]; exists {
		return fmt.Errorf("strategy %q already registered", s.Name())
	}
	r.byName[s.Name()] = s
	r.strategies = append(r.strategies, s)
	return nil
}

// LoadAll returns every registered strategy in registration order. Empty is not an error.
func (r *Registry) LoadAll() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Get looks a strategy up by name
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	return s, ok
}

// NewDefaultRegistry registers the enabled variants from the scan configuration
func NewDefaultRegistry(cfg *scanconfig.Config, log *logger.Logger) (*Registry, error) {
	settings := func(s scanconfig.Strategy) Settings {
		return Settings{
			ExpiryMinDays:       s.ExpiryMinDays,
			ExpiryMaxDays:       s.ExpiryMaxDays,
			MinConfidence:       cfg.EffectiveMinConfidence(s),
			GlobalMinConfidence: cfg.Scan.MinConfidence,
			MinFScore:           cfg.Health.MinFScore,
			MinZScore:           cfg.Health.MinZScore,
		}
	}

	reg := NewRegistry()
	var candidates []Strategy
	if s := cfg.Strategies.TrendSeller; s.Enabled {
		candidates = append(candidates, NewTrendSeller(settings(s), log))
	}
	if s := cfg.Strategies.VolatilitySeller; s.Enabled {
		candidates = append(candidates, NewVolatilitySeller(settings(s), log))
	}
	if s := cfg.Strategies.DividendSeller; s.Enabled {
		candidates = append(candidates, NewDividendSeller(settings(s), log))
	}

	for _, s := range candidates {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}

	log.Module("strategy").WithField("count", len(candidates)).Info("Strategies registered")
	return reg, nil
}
