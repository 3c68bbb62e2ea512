package ble

import (
  "context"
  "errors"
  "fmt"

  "github.com/go-ble/ble"
  "github.com/robertof/go-miscale-logger/utils"
  "github.com/rs/zerolog/log"
)

var ErrNoAdvertisement = errors.New("ble: no matching advertisement received")

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
  return ble.WithSigHandler(ctx, cancel)
}

// Perform a scan and pass every advertisement received to onDevice until the context is done.
func (h *Handle) ScanAll(ctx context.Context, onDevice func(Advertisement)) error {
  err := h.dev.Scan(ctx, true, onDevice)

  if err != nil && !isScanEnd(err) {
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}

// Scan until an advertisement carrying exactly the given local name shows up, or the context
// expires. Returns ErrNoAdvertisement if the scan ended without a match.
func (h *Handle) FindByName(parentCtx context.Context, name string) (Advertisement, error) {
  ctx, cancel := context.WithCancel(parentCtx)
  defer cancel()

  found := make(chan Advertisement, 1)

  err := h.dev.Scan(ctx, true, func(a Advertisement) {
    if a.LocalName() != name {
      return
    }

    log.Trace().
      Str("Addr", a.Addr().String()).
      Str("LocalName", a.LocalName()).
      Int("RSSI", a.RSSI()).
      Msg("ble: received advertisement matching name")

    select {
    case found <- a:
      cancel()
    default:
    }
  })

  select {
  case a := <-found:
    return a, nil
  default:
  }

  if err != nil && !isScanEnd(err) {
    return nil, fmt.Errorf("failed to initiate scan: %w", err)
  }

  // the parent went away: that's not a "not found", propagate it.
  if errors.Is(parentCtx.Err(), context.Canceled) {
    return nil, parentCtx.Err()
  }

  return nil, fmt.Errorf("%w: name %q", ErrNoAdvertisement, name)
}

// the linux device returns the context error once scanning stops.
func isScanEnd(err error) bool {
  return utils.ErrorIsAnyOf(err, context.Canceled, context.DeadlineExceeded)
}
