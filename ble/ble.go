package ble

import (
  "fmt"

  "github.com/go-ble/ble"
  "github.com/go-ble/ble/linux"
  "github.com/go-ble/ble/linux/hci/cmd"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/rs/zerolog/log"
)

type Advertisement = ble.Advertisement
type Addr = ble.Addr
type UUID = ble.UUID

type Handle struct {
  dev *linux.Device
}

func UUID16(i uint16) UUID {
  return ble.UUID16(i)
}

func MustParseUUID(s string) UUID {
  return ble.MustParse(s)
}

func RegisterMetrics(reg prometheus.Registerer) {
  reg.MustRegister(
    successfulConnectionsCounter,
    failedConnectionsCounter,
    subscriptionsCounter,
    disconnectsCounter,
  )
}

func Init(deviceId int, flags Flags) (*Handle, error) {
  return InitWithConnParams(
    deviceId,
    ConnParamsDefault,
    flags,
  )
}

func InitWithConnParams(deviceId int, connParams ConnParams, flags Flags) (*Handle, error) {
  var scanType scanType = scanTypePassive

  if flags & FlagScanTypeActive == FlagScanTypeActive {
    scanType = scanTypeActive
  }

  log.Debug().
    Stringer("ScanType", scanType).
    Stringer("ConnParams", connParams).
    Stringer("Flags", flags).
    Int("DeviceID", deviceId).
    Msg("Initializing Bluetooth device")

  dev, err := linux.NewDevice(
    ble.OptDeviceID(deviceId),
    ble.OptScanParams(cmd.LESetScanParameters{
      LEScanType:           uint8(scanType), // 0x00: passive, 0x01: active
      LEScanInterval:       0x0004,          // 0x0004 - 0x4000; N * 0.625msec
      LEScanWindow:         0x0004,          // 0x0004 - 0x4000; N * 0.625msec
      OwnAddressType:       0x00,            // 0x00: public, 0x01: random
      ScanningFilterPolicy: 0x00,            // 0x00: accept all
    }),
    ble.OptConnParams(connParams.AdapterOptions()),
  )

  if err != nil {
    return nil, fmt.Errorf("failed to init bluetooth device: %w", err)
  }

  return &Handle{dev: dev}, nil
}

func (h *Handle) Stop() {
  if err := h.dev.Stop(); err != nil {
    log.Warn().Err(err).Msg("ble: failed to stop Bluetooth device cleanly")
  }
}
