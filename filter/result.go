package filter

import (
  "fmt"
  "strconv"

  "github.com/robertof/go-miscale-logger/device"
)

type Verdict uint8

const (
  // No decision was reached, Consider returned an error.
  VerdictUndecided Verdict = iota
  // Unstable, or at or below the minimum weight. State was not looked at.
  VerdictIgnored
  // Accepted as the first weighing ever, becoming the baseline.
  VerdictSeeded
  VerdictAccepted
  // Too far from the last accepted weight.
  VerdictRejected
)

func (v Verdict) String() string {
  switch v {
  case VerdictUndecided:
    return "undecided"
  case VerdictIgnored:
    return "ignored"
  case VerdictSeeded:
    return "seeded"
  case VerdictAccepted:
    return "accepted"
  case VerdictRejected:
    return "rejected"
  default:
    panic("unknown verdict value: " + strconv.Itoa(int(v)))
  }
}

type Result struct {
  Verdict
  // Set for VerdictSeeded and VerdictAccepted.
  Weighing device.Weighing
  // Distance from the last accepted weight. Zero when seeding.
  Delta float64
}

func (r Result) Recorded() bool {
  return r.Verdict == VerdictSeeded || r.Verdict == VerdictAccepted
}

func (r Result) String() string {
  if r.Recorded() {
    return fmt.Sprintf("result:%v(%v)", r.Verdict, r.Weighing)
  }

  return fmt.Sprintf("result:%v(delta=%.2f)", r.Verdict, r.Delta)
}
