package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/rumoo/internal/config"
)

// Guard pairs a breaker with a retry schedule for one upstream.
type Guard struct {
	breaker *Breaker
	backoff Backoff
}

// Breaker exposes the guard's breaker.
func (g *Guard) Breaker() *Breaker { return g.breaker }

// Call runs fn through g. Each attempt consults the breaker, so an upstream
// that trips mid-retry stops the loop with ErrOpen. A nil guard calls fn once.
func Call[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	return Retry(ctx, g.backoff, g.breaker.Name, func(ctx context.Context) (T, error) {
		if err := g.breaker.Allow(); err != nil {
			var zero T
			return zero, err
		}
		v, err := fn(ctx)
		g.breaker.Done(err)
		return v, err
	})
}

// Guards hands out one guard per upstream name.
type Guards struct {
	backoff   Backoff
	threshold int
	cooldown  time.Duration
	onChange  func(string, State)

	mu     sync.Mutex
	guards map[string]*Guard
}

// NewGuards builds a registry from configuration. onChange may be nil.
func NewGuards(cfg config.ResilienceConfig, onChange func(name string, to State)) *Guards {
	return &Guards{
		backoff: Backoff{
			Attempts: cfg.MaxAttempts,
			Initial:  time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
			Max:      time.Duration(cfg.MaxBackoffMs) * time.Millisecond,
		},
		threshold: cfg.BreakerThreshold,
		cooldown:  time.Duration(cfg.BreakerResetSecs) * time.Second,
		onChange:  onChange,
		guards:    make(map[string]*Guard),
	}
}

// For returns the guard for name, creating it on first use.
func (gs *Guards) For(name string) *Guard {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if g, ok := gs.guards[name]; ok {
		return g
	}
	br := NewBreaker(name, gs.threshold, gs.cooldown)
	br.OnChange = gs.onChange
	g := &Guard{breaker: br, backoff: gs.backoff}
	gs.guards[name] = g
	return g
}

// States snapshots every breaker.
func (gs *Guards) States() map[string]State {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	out := make(map[string]State, len(gs.guards))
	for name, g := range gs.guards {
		out[name] = g.breaker.State()
	}
	return out
}
