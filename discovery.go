package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"

	"github.com/robertof/go-miscale-logger/ble"
	"github.com/robertof/go-miscale-logger/utils"
)

const discoveryDuration = 5 * time.Second

type discoveredDevice struct {
  addr string
  name string
  connectable bool
  rssi int
  services map[string]ble.UUID
}

// discoveredDevices merges advertisements by address. go-ble may still deliver advertisements
// after the scan returned: once finish was called they are dropped.
type discoveredDevices struct {
  mu sync.Mutex
  devices map[string]*discoveredDevice
  finished bool
}

func newDiscoveredDevices() *discoveredDevices {
  return &discoveredDevices{devices: make(map[string]*discoveredDevice)}
}

func (d *discoveredDevices) add(a ble.Advertisement) {
  d.mu.Lock()
  defer d.mu.Unlock()

  if d.finished {
    return
  }

  addr := a.Addr().String()
  dev, ok := d.devices[addr]

  if !ok {
    dev = &discoveredDevice{addr: addr, services: make(map[string]ble.UUID)}
    d.devices[addr] = dev
  }

  // the name only shows up in scan responses, keep the first one we see.
  if dev.name == "" {
    dev.name = a.LocalName()
  }

  dev.connectable = a.Connectable()
  dev.rssi = a.RSSI()

  for _, uuid := range a.Services() {
    dev.services[uuid.String()] = uuid
  }
}

// finish stops accepting advertisements and returns the devices sorted by address.
func (d *discoveredDevices) finish() []discoveredDevice {
  d.mu.Lock()
  defer d.mu.Unlock()

  d.finished = true

  addrs := maps.Keys(d.devices)
  sort.Strings(addrs)

  list := make([]discoveredDevice, 0, len(addrs))

  for _, addr := range addrs {
    list = append(list, *d.devices[addr])
  }

  return list
}

func doDeviceDiscovery(cfg config) {
  log.Info().
    Dur("Duration", discoveryDuration).
    Msg("Starting in device discovery mode - collecting devices...")

  handle, err := ble.Init(cfg.BluetoothDeviceId, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  defer handle.Stop()

  ctx := ble.WrapContextWithSigHandler(
    context.WithTimeout(
      context.Background(),
      discoveryDuration,
    ),
  )

  devices := newDiscoveredDevices()

  err = handle.ScanAll(ctx, func(a ble.Advertisement) {
    devices.add(a)

    log.Trace().
      Str("Addr", a.Addr().String()).
      Str("Name", a.LocalName()).
      Int("RSSI", a.RSSI()).
      Hex("ServiceData", serviceData(a)).
      Msg("Received device advertisement")
  })

  if err != nil && !utils.ErrorIsAnyOf(err, context.Canceled, context.DeadlineExceeded) {
    log.Fatal().Err(err).Msg("Failed to initiate scan")
  }

  found := devices.finish()

  log.Info().Int("Found", len(found)).Msg("Finished device discovery")

  for _, dev := range found {
    log.Info().
      Str("Addr", dev.addr).
      Str("Name", dev.name).
      Bool("Connectable", dev.connectable).
      Int("RSSI", dev.rssi).
      Bool("IsScale", dev.name == cfg.DeviceName).
      Array("Services", utils.SortedZeroLogArray(maps.Values(dev.services))).
      Msg("Found device")
  }
}

func serviceData(a ble.Advertisement) []byte {
  var data []byte

  for _, sd := range a.ServiceData() {
    data = append(data, sd.Data...)
  }

  return data
}
