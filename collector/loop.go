package collector

import (
  "context"
  "errors"
  "time"

  "github.com/rs/zerolog/log"
)

// Kept tiny so that a scale which just woke up is reconnected to before it goes back to sleep.
const DefaultReconnectPause = 100 * time.Millisecond

type AddressResolver interface {
  Resolve(ctx context.Context) (string, error)
}

type SessionRunner interface {
  Run(ctx context.Context, addr string) error
}

// Loop resolves the device address once and then keeps running sessions against it, pausing
// ReconnectPause between them. It only stops when ctx is cancelled.
type Loop struct {
  ReconnectPause time.Duration

  resolver AddressResolver
  session SessionRunner
}

func NewLoop(resolver AddressResolver, session SessionRunner) *Loop {
  return &Loop{
    ReconnectPause: DefaultReconnectPause,
    resolver: resolver,
    session: session,
  }
}

func (l *Loop) Run(ctx context.Context) error {
  addr, err := l.resolve(ctx)

  if err != nil {
    return err
  }

  log.Info().
    Str("Addr", addr).
    Dur("ReconnectPauseSec", l.ReconnectPause).
    Msg("Starting reconnect loop")

  for {
    err := l.session.Run(ctx, addr)

    if ctx.Err() != nil {
      log.Info().Msg("Reconnect loop is shutting down")
      return ctx.Err()
    }

    if err != nil {
      log.Info().Err(err).Str("Addr", addr).Msg("Connect error")
    } else {
      log.Debug().Str("Addr", addr).Msg("Session ended, reconnecting")
    }

    if !l.pause(ctx, l.ReconnectPause) {
      return ctx.Err()
    }
  }
}

// The scale is expected to be asleep most of the time: keep trying until it shows up. Failed
// scans are not delayed any further, their own timeouts already throttle the retries.
func (l *Loop) resolve(ctx context.Context) (string, error) {
  for {
    addr, err := l.resolver.Resolve(ctx)

    if err == nil {
      return addr, nil
    }

    if ctx.Err() != nil {
      return "", ctx.Err()
    }

    log.Info().Err(err).Msg("Error finding device")

    // anything else than a scan coming back empty may fail instantly, don't spin on it.
    if !errors.Is(err, ErrDeviceNotFound) && !l.pause(ctx, l.ReconnectPause) {
      return "", ctx.Err()
    }
  }
}

func (l *Loop) pause(ctx context.Context, d time.Duration) bool {
  select {
  case <-ctx.Done():
    return false
  case <-time.After(d):
    return true
  }
}
