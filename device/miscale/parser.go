package miscale

import (
  "encoding/binary"

  "github.com/pkg/errors"
  "github.com/robertof/go-miscale-logger/device"
)

const (
  flagStable = 1 << 5

  // raw weight units per kilogram
  weightScale = 200.0
)

// Decode a measurement notification. The flags live in the first two bytes and the weight is
// read from bytes 1-2: the two windows overlap on byte 1, which is how the scale lays them out.
func Decode(data []byte) (m device.Measurement, err error) {
  if len(data) < 3 {
    return m, errors.Wrapf(device.ErrInvalidData,
      "miscale: unexpected data length (%d), want >= 3", len(data))
  }

  bo := binary.LittleEndian
  flags := bo.Uint16(data[0:2])
  rawWeight := bo.Uint16(data[1:3])

  m.Weight = float64(rawWeight) / weightScale
  m.Stable = flags & flagStable != 0

  return m, nil
}
