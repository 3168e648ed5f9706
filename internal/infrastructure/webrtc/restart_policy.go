package webrtc

import (
	"errors"
	"sync"
	"time"

	"watchparty/pkg/clock"

	"golang.org/x/time/rate"
)

var (
	ErrRestartInFlight = errors.New("ice restart already in progress")
	ErrRestartLimit    = errors.New("ice restart limit reached")
	ErrRestartCooldown = errors.New("ice restart cooldown active")
)

// RestartPolicy bounds ICE restarts on one link: a single attempt in flight,
// a cooldown between attempts and a cap that resets once the link recovers.
type RestartPolicy struct {
	mu       sync.Mutex
	clock    clock.Clock
	limiter  *rate.Limiter
	max      int
	attempts int
	inFlight bool
}

func NewRestartPolicy(cooldown time.Duration, max int, clk clock.Clock) *RestartPolicy {
	return &RestartPolicy{
		clock:   clk,
		limiter: rate.NewLimiter(rate.Every(cooldown), 1),
		max:     max,
	}
}

// Begin reserves the next attempt and returns its 1-based number.
// Every successful Begin must be paired with Done.
func (p *RestartPolicy) Begin() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight {
		return p.attempts, ErrRestartInFlight
	}
	if p.attempts >= p.max {
		return p.attempts, ErrRestartLimit
	}
	if !p.limiter.AllowN(p.clock.Now(), 1) {
		return p.attempts, ErrRestartCooldown
	}

	p.attempts++
	p.inFlight = true
	return p.attempts, nil
}

func (p *RestartPolicy) Done() {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}

// Reset clears the attempt counter after the link reaches connected.
// The cooldown keeps running.
func (p *RestartPolicy) Reset() {
	p.mu.Lock()
	p.attempts = 0
	p.mu.Unlock()
}

func (p *RestartPolicy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}
