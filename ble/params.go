package ble

import (
  "fmt"
  "sort"

  "github.com/go-ble/ble/linux/hci/cmd"
)

type ConnParams string

const (
  ConnParamsDefault     ConnParams = "default"
  ConnParamsPowerSaving ConnParams = "power-saving"
)

type connTiming struct {
  intervalMin, intervalMax uint16
  latency                  uint16
  supervisionTimeout       uint16
}

var connTimings = map[ConnParams]connTiming{
  // the supervision timeout also bounds how long it takes to notice that the scale went
  // back to sleep, so keep it short: 720ms.
  ConnParamsDefault: {
    intervalMin:        0x0006, // 7.5ms
    intervalMax:        0x0006, // 7.5ms
    latency:            0x0000,
    supervisionTimeout: 0x0048, // 720ms
  },
  // https://developer.apple.com/accessories/Accessory-Design-Guidelines.pdf
  // section "Connection Parameters":
  // - interval max * (latency + 1) <= 1/2 supervision timeout
  ConnParamsPowerSaving: {
    intervalMin:        0x00f0, // 300ms
    intervalMax:        0x00f0, // 300ms
    latency:            0x0014, // 20
    supervisionTimeout: 0x0708, // 18s
  },
}

func (c ConnParams) String() string {
  return string(c)
}

// *flag.Value
func (c *ConnParams) Set(v string) error {
  if v == "" {
    *c = ConnParamsDefault
    return nil
  }

  p := ConnParams(v)

  if _, ok := connTimings[p]; !ok {
    return fmt.Errorf("unknown connection param %v (must be one of %v)", p, knownConnParams())
  }

  *c = p
  return nil
}

func knownConnParams() []string {
  known := make([]string, 0, len(connTimings))

  for p := range connTimings {
    known = append(known, string(p))
  }

  sort.Strings(known)

  return known
}

func (c ConnParams) AdapterOptions() cmd.LECreateConnection {
  t, ok := connTimings[c]

  if !ok {
    panic("unknown Bluetooth connection param: " + c)
  }

  return cmd.LECreateConnection{
    LEScanInterval:        0x0004,    // 0x0004 - 0x4000; N * 0.625 msec
    LEScanWindow:          0x0004,    // 0x0004 - 0x4000; N * 0.625 msec
    InitiatorFilterPolicy: 0x00,      // White list is not used
    PeerAddressType:       0x00,      // Public Device Address
    PeerAddress:           [6]byte{}, //
    OwnAddressType:        0x00,      // Public Device Address
    ConnIntervalMin:       t.intervalMin,
    ConnIntervalMax:       t.intervalMax,
    ConnLatency:           t.latency,
    SupervisionTimeout:    t.supervisionTimeout,
    MinimumCELength:       0x0000, // 0x0000 - 0xFFFF; N * 0.625 msec
    MaximumCELength:       0x0000, // 0x0000 - 0xFFFF; N * 0.625 msec
  }
}
