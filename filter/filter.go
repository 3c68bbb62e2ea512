package filter

import (
  "context"
  "fmt"
  "math"
  "strconv"
  "sync"
  "time"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-miscale-logger/device"
  "github.com/rs/zerolog/log"
)

const (
  // Only meant to drop garbled packets and other people stepping on the scale.
  DefaultSwingRange = 5.0
  // Readings at or below this are the scale settling or someone stepping off.
  DefaultMinWeight = 10.0
)

var verdictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
  Name: "miscale_logger_filter_measurements_total",
  Help: "Measurements seen by the acceptance filter, by verdict.",
}, []string{"verdict"})

func RegisterMetrics(reg prometheus.Registerer) {
  reg.MustRegister(verdictCounter)
}

// StateStore persists the last accepted weight.
type StateStore interface {
  Load() (value string, ok bool, err error)
  Store(value string) error
}

type Recorder interface {
  Record(ctx context.Context, w device.Weighing) error
}

// Filter decides which stable measurements are genuine weighings by comparing them to the last
// accepted weight. It expects a single, serialized stream of measurements.
type Filter struct {
  SwingRange float64
  MinWeight float64
  Now func() time.Time

  state StateStore
  sink Recorder

  mu sync.Mutex
  last device.Weighing
  hasLast bool
}

func New(state StateStore, sink Recorder) *Filter {
  return &Filter{
    SwingRange: DefaultSwingRange,
    MinWeight: DefaultMinWeight,
    Now: time.Now,
    state: state,
    sink: sink,
  }
}

func (f *Filter) Consider(ctx context.Context, m device.Measurement) (Result, error) {
  if !m.Stable || m.Weight <= f.MinWeight {
    log.Debug().Stringer("Measurement", m).Msg("Ignoring unstable or implausibly low measurement")
    verdictCounter.WithLabelValues(VerdictIgnored.String()).Inc()

    return Result{Verdict: VerdictIgnored}, nil
  }

  log.Info().
    Str("Weight", device.FormatWeight(m.Weight)).
    Time("ObservedAt", m.ObservedAt).
    Msg("Received stable measurement")

  last, primed, err := f.lastWeight()
  if err != nil {
    return Result{}, err
  }

  res := Result{Verdict: VerdictAccepted}

  if !primed {
    log.Error().
      Str("Weight", device.FormatWeight(m.Weight)).
      Msg("No last weight found, seeding it with this measurement")

    res.Verdict = VerdictSeeded
  } else {
    res.Delta = math.Abs(m.Weight - last)

    if res.Delta > f.SwingRange {
      log.Info().
        Str("Delta", device.FormatWeight(res.Delta)).
        Str("LastWeight", device.FormatWeight(last)).
        Float64("SwingRange", f.SwingRange).
        Msg("Weight change exceeds swing range, not recording")

      res.Verdict = VerdictRejected
      verdictCounter.WithLabelValues(res.Verdict.String()).Inc()

      return res, nil
    }
  }

  res.Weighing = device.Weighing{
    Weight: m.Weight,
    RecordedAt: f.Now(),
  }

  // record first: a failed write must leave the baseline untouched.
  if err := f.sink.Record(ctx, res.Weighing); err != nil {
    return Result{}, fmt.Errorf("failed to record weighing: %w", err)
  }

  if err := f.state.Store(device.FormatWeight(m.Weight)); err != nil {
    return res, fmt.Errorf("weighing recorded but the last weight could not be updated: %w", err)
  }

  f.mu.Lock()
  f.last, f.hasLast = res.Weighing, true
  f.mu.Unlock()

  verdictCounter.WithLabelValues(res.Verdict.String()).Inc()

  log.Info().Stringer("Weighing", res.Weighing).Stringer("Verdict", res.Verdict).Msg("Recorded weighing")

  return res, nil
}

// Last returns the most recent weighing accepted by this process, if any.
func (f *Filter) Last() (device.Weighing, bool) {
  f.mu.Lock()
  defer f.mu.Unlock()

  return f.last, f.hasLast
}

func (f *Filter) lastWeight() (weight float64, primed bool, err error) {
  raw, ok, err := f.state.Load()
  if err != nil {
    return 0, false, fmt.Errorf("failed to load last weight: %w", err)
  }

  if !ok {
    return 0, false, nil
  }

  weight, err = strconv.ParseFloat(raw, 64)
  if err != nil {
    log.Warn().Str("Value", raw).Err(err).Msg("Stored last weight is not a number, reseeding it")
    return 0, false, nil
  }

  return weight, true, nil
}
