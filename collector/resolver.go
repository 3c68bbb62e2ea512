package collector

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/robertof/go-miscale-logger/ble"
  "github.com/rs/zerolog/log"
)

const (
  DefaultQuickScanTimeout = 1 * time.Second
  DefaultTargetedScanTimeout = 3 * time.Second
)

// Resolver finds the address of the device advertising Name and caches it. Once cached, the
// address is never scanned for again: delete the cache to pick up a different device.
type Resolver struct {
  Name string
  QuickScanTimeout time.Duration
  TargetedScanTimeout time.Duration

  scanner Scanner
  cache AddressStore
}

func NewResolver(scanner Scanner, cache AddressStore, name string) *Resolver {
  return &Resolver{
    Name: name,
    QuickScanTimeout: DefaultQuickScanTimeout,
    TargetedScanTimeout: DefaultTargetedScanTimeout,
    scanner: scanner,
    cache: cache,
  }
}

func (r *Resolver) Resolve(ctx context.Context) (string, error) {
  addr, ok, err := r.cache.Load()

  if err != nil {
    return "", fmt.Errorf("failed to read cached address: %w", err)
  }

  if ok && addr != "" {
    log.Debug().Str("Name", r.Name).Str("Addr", addr).Msg("Using cached device address")
    return addr, nil
  }

  log.Info().
    Str("Name", r.Name).
    Dur("TimeoutSec", r.QuickScanTimeout).
    Msg("Scanning briefly to find device address")

  addr, err = r.quickScan(ctx)

  if err != nil {
    return "", err
  }

  if addr == "" {
    log.Debug().
      Str("Name", r.Name).
      Dur("TimeoutSec", r.TargetedScanTimeout).
      Msg("Device not seen in quick scan, searching for it by name")

    addr, err = r.targetedScan(ctx)

    if err != nil {
      return "", err
    }
  }

  // persist before handing the address out so that a crash right after still finds it cached.
  if err := r.cache.Store(addr); err != nil {
    return "", fmt.Errorf("failed to cache device address: %w", err)
  }

  log.Info().Str("Name", r.Name).Str("Addr", addr).Msg("Cached device address")

  return addr, nil
}

// Returns an empty address if the device was not among the advertisements received.
func (r *Resolver) quickScan(parentCtx context.Context) (string, error) {
  ctx, cancel := context.WithTimeout(parentCtx, r.QuickScanTimeout)
  defer cancel()

  found := make(chan string, 1)

  err := r.scanner.ScanAll(ctx, func(a ble.Advertisement) {
    log.Trace().
      Str("Addr", a.Addr().String()).
      Str("LocalName", a.LocalName()).
      Msg("Received advertisement during quick scan")

    if a.LocalName() != r.Name {
      return
    }

    select {
    case found <- a.Addr().String():
      cancel()
    default:
    }
  })

  select {
  case addr := <-found:
    return addr, nil
  default:
  }

  if err != nil {
    return "", fmt.Errorf("quick scan failed: %w", err)
  }

  if err := parentCtx.Err(); err != nil {
    return "", err
  }

  return "", nil
}

func (r *Resolver) targetedScan(parentCtx context.Context) (string, error) {
  ctx, cancel := context.WithTimeout(parentCtx, r.TargetedScanTimeout)
  defer cancel()

  a, err := r.scanner.FindByName(ctx, r.Name)

  if errors.Is(err, ble.ErrNoAdvertisement) {
    return "", fmt.Errorf("%w: could not find %q, is it awake and advertising?", ErrDeviceNotFound, r.Name)
  }

  if err != nil {
    return "", fmt.Errorf("targeted scan failed: %w", err)
  }

  return a.Addr().String(), nil
}
