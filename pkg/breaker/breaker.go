package breaker

import (
	"errors"
	"sync"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/pkg/config"
)

// StateListener receives breaker state transitions, e.g. to export a gauge.
type StateListener func(name string, state gobreaker.State)

// Registry hands out one named circuit breaker per remote dependency. The
// instances are shared process-wide so every call site mutates the same
// health window.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
	cfg       config.BreakerConfig
	logger    *zap.Logger
	listeners []StateListener
}

// NewRegistry constructs a Registry from breaker tuning config.
func NewRegistry(cfg config.BreakerConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	return &Registry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		cfg:      cfg,
		logger:   logger,
	}
}

// OnStateChange registers a listener notified on every state transition.
// Listeners must be registered before the first Get for a name.
func (r *Registry) OnStateChange(fn StateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Get returns the breaker registered under name, creating it on first use.
func (r *Registry) Get(name string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cfg := r.cfg
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("circuit breaker state change",
				zap.String("target", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			r.notify(name, to)
		},
	})
	r.breakers[name] = cb
	return cb
}

func (r *Registry) notify(name string, state gobreaker.State) {
	r.mu.Lock()
	listeners := make([]StateListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(name, state)
	}
}

// Open reports whether err means the breaker refused the call outright.
func Open(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
