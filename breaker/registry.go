package breaker

import "sync"

// Registry holds one CircuitBreaker per service name, created lazily on
// first use, grounded on the teacher's CircuitBreakerRegistry
// (middleware/circuit_breaker.go).
type Registry struct {
	mu            sync.Mutex
	breakers      map[string]*CircuitBreaker
	defaultConfig Config
}

// NewRegistry creates a Registry that constructs new breakers with
// defaultConfig.
func NewRegistry(defaultConfig Config) *Registry {
	return &Registry{
		breakers:      make(map[string]*CircuitBreaker),
		defaultConfig: defaultConfig,
	}
}

// Breaker returns the stable CircuitBreaker instance for name, creating
// one with the registry's default config on first access.
func (r *Registry) Breaker(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.defaultConfig)
	r.breakers[name] = b
	return b
}

// BreakerWithConfig returns the stable instance for name, creating it with
// cfg if it does not already exist (cfg is ignored if name already has a
// breaker).
func (r *Registry) BreakerWithConfig(name string, cfg Config) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, cfg)
	r.breakers[name] = b
	return b
}

// OpenCircuits returns the names of all breakers currently in the Open
// state.
func (r *Registry) OpenCircuits() []string {
	r.mu.Lock()
	names := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		names = append(names, b)
	}
	r.mu.Unlock()

	var open []string
	for _, b := range names {
		if b.State() == Open {
			open = append(open, b.Name())
		}
	}
	return open
}

// IsHealthy reports whether name's breaker is not Open. A name with no
// breaker yet created is considered healthy.
func (r *Registry) IsHealthy(name string) bool {
	r.mu.Lock()
	b, ok := r.breakers[name]
	r.mu.Unlock()
	if !ok {
		return true
	}
	return b.State() != Open
}

// ResetAll forces every known breaker Closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	for _, b := range breakers {
		b.Reset()
	}
}

// HealthSnapshot returns Statistics for every known breaker, keyed by
// name.
func (r *Registry) HealthSnapshot() map[string]Stats {
	r.mu.Lock()
	breakers := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, b := range r.breakers {
		breakers[name] = b
	}
	r.mu.Unlock()

	snap := make(map[string]Stats, len(breakers))
	for name, b := range breakers {
		snap[name] = b.Statistics()
	}
	return snap
}
