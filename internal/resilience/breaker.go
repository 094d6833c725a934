package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is a breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// ErrOpen rejects calls while a breaker is open.
var ErrOpen = eris.New("resilience: breaker open")

// Breaker trips after Threshold consecutive failures and lets a single probe
// through once Cooldown has elapsed.
type Breaker struct {
	Name      string
	Threshold int
	Cooldown  time.Duration

	// OnChange observes transitions. Called with the lock held.
	OnChange func(name string, to State)

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{Name: name, Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reserves a call slot. Callers that get nil must report the outcome
// through Done.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.Cooldown {
			return ErrOpen
		}
		b.set(HalfOpen)
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

// Done records a call outcome. Only retryable errors count as failures; a
// 4xx from the upstream says nothing about its health.
func (b *Breaker) Done(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil || !Retryable(err) {
		b.failures = 0
		if b.state != Closed {
			b.set(Closed)
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.Threshold {
		b.openedAt = b.now()
		b.set(Open)
	}
}

func (b *Breaker) set(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.OnChange != nil {
		b.OnChange(b.Name, s)
	}
}
