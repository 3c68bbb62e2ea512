package miscale

import (
  "github.com/robertof/go-miscale-logger/ble"
)

// Name advertised by the Xiaomi Mi Body Composition Scale 2.
const DefaultName = "MI SCALE2"

// Weight Measurement characteristic (0x2A9D) pushed by the scale on every reading.
var MeasurementUUID = ble.MustParseUUID("00002a9d-0000-1000-8000-00805f9b34fb")
