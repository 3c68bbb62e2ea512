package metrics

import (
  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-miscale-logger/device"
)

var (
  descWeight = prometheus.NewDesc(
    "scale_weight_kilograms",
    "Last weight accepted by the filter, in kilograms.",
    []string{"name"},
    nil,
  )

  descRecordedAt = prometheus.NewDesc(
    "scale_weight_recorded_timestamp_seconds",
    "Unix time at which the last accepted weight was recorded.",
    []string{"name"},
    nil,
  )
)

// CollectFunc returns the last accepted weighing, ok is false until there is one.
type CollectFunc func() (w device.Weighing, ok bool)

type collector struct {
  CollectFunc
  name string
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  // described up front: nothing is collected before the first weighing.
  ch <- descWeight
  ch <- descRecordedAt
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  w, ok := c.CollectFunc()

  if !ok {
    return
  }

  // sent without a sample timestamp, scale_weight_recorded_timestamp_seconds carries the time.
  ch <- prometheus.MustNewConstMetric(
    descWeight,
    prometheus.GaugeValue,
    w.Weight,
    c.name,
  )

  ch <- prometheus.MustNewConstMetric(
    descRecordedAt,
    prometheus.GaugeValue,
    float64(w.RecordedAt.UnixNano()) / 1e9,
    c.name,
  )
}

func RegisterCollector(name string, f CollectFunc, reg prometheus.Registerer) {
  c := &collector{CollectFunc: f, name: name}

  reg.MustRegister(c)
}
