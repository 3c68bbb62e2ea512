package device

import (
  "fmt"
  "strconv"
  "time"
)

// FormatWeight renders a weight in kilograms with two decimals. The local log, the remote table
// and the persisted last weight all use it.
func FormatWeight(w float64) string {
  return strconv.FormatFloat(w, 'f', 2, 64)
}

// Measurement is a single decoded weight notification.
type Measurement struct {
  Weight float64 // kilograms
  Stable bool
  ObservedAt time.Time
}

func (m Measurement) String() string {
  stability := "unstable"

  if m.Stable {
    stability = "stable"
  }

  return fmt.Sprintf("Measurement[Weight=%skg,%v]", FormatWeight(m.Weight), stability)
}

// Weighing is a measurement which went through the acceptance filter and has to be recorded.
type Weighing struct {
  Weight float64
  RecordedAt time.Time
}

func (w Weighing) String() string {
  return fmt.Sprintf("Weighing[Weight=%skg,At=%v]", FormatWeight(w.Weight), w.RecordedAt.Format(time.DateTime))
}
