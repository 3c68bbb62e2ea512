package device_test

import (
  "testing"

  "github.com/robertof/go-miscale-logger/device"
)

func TestFormatWeight(t *testing.T) {
  tests := []struct {
    weight float64
    want string
  }{
    {72.5, "72.50"},
    {3, "3.00"},
    {75.1, "75.10"},
    {99.999, "100.00"},
    {0, "0.00"},
  }

  for _, test := range tests {
    if got := device.FormatWeight(test.weight); got != test.want {
      t.Fatalf("FormatWeight(%v): got %q, wanted %q", test.weight, got, test.want)
    }
  }
}

func TestWeighingString(t *testing.T) {
  w := device.Weighing{Weight: 72.5}
  want := "Weighing[Weight=72.50kg,At=" + w.RecordedAt.Format("2006-01-02 15:04:05") + "]"

  if got := w.String(); got != want {
    t.Fatalf("Weighing.String(): got %q, wanted %q", got, want)
  }
}
