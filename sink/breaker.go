package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
)

type BreakerConfig struct {
	Name string
	// Consecutive failures before the remote is skipped.
	MaxFailures uint32
	// How long the remote is skipped before a single probe insert is let through.
	Timeout time.Duration
}

// Breaker skips a remote which keeps failing, so that a dead remote does not add its full
// timeout to the processing of every notification.
type Breaker struct {
	inner Remote
	cb    *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(inner Remote, cfg BreakerConfig) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	name := cfg.Name
	if name == "" {
		name = "remote"
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("Breaker", name).
				Stringer("From", from).
				Stringer("To", to).
				Msg("sink: remote circuit breaker changed state")
		},
	})

	return &Breaker{inner: inner, cb: cb}
}

func (b *Breaker) Insert(ctx context.Context, row Row) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.inner.Insert(ctx, row)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("remote skipped: %w", err)
	}

	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
