package service

import (
	"errors"
	"sync"
	"time"

	"smart_environment/internal/logger"
)

var ErrBreakerOpen = errors.New("circuit breaker open; provider skipped")

// BreakerConfig disables the breaker when MaxFailures is zero.
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker stops the resolver from waiting on a provider that keeps failing.
// After MaxFailures consecutive failures it fast-fails until ResetTimeout has
// passed, then lets a single half-open attempt decide.
type Breaker struct {
	name  string
	cfg   BreakerConfig
	log   *logger.Logger
	clock func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func NewBreaker(name string, cfg BreakerConfig, log *logger.Logger) *Breaker {
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		log:   logger.OrNop(log),
		clock: time.Now,
	}
}

func (b *Breaker) enabled() bool { return b != nil && b.cfg.MaxFailures > 0 }

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	if !b.enabled() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.clock().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrBreakerOpen
		}
		b.state = breakerHalfOpen
		b.log.Infow("breaker_half_open", "provider", b.name, "previous_failures", b.failures)
		return nil
	case breakerHalfOpen:
		// a probe is already running
		return ErrBreakerOpen
	default:
		return nil
	}
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	if !b.enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != breakerClosed {
			b.log.Infow("breaker_closed", "provider", b.name, "from", b.state.String())
		}
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.cfg.MaxFailures {
		if b.state != breakerOpen {
			b.log.Warnw("breaker_opened", "provider", b.name, "failures", b.failures, "error", err)
		}
		b.state = breakerOpen
		b.openedAt = b.clock()
	}
}

func (b *Breaker) State() string {
	if !b.enabled() {
		return "disabled"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}
