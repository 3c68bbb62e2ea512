// Package collector drives the scale: it finds its address, keeps a connection open whenever
// the scale is awake and feeds every measurement notification through the acceptance filter.
package collector

import (
  "context"
  "errors"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-miscale-logger/ble"
  "github.com/robertof/go-miscale-logger/device"
  "github.com/robertof/go-miscale-logger/filter"
)

var (
  ErrDeviceNotFound = errors.New("device not found")
  ErrConnect = errors.New("connection failed")
)

var (
  sessionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
    Name: "miscale_logger_sessions_total",
    Help: "Connection sessions by outcome.",
  }, []string{"outcome"})
  notificationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "miscale_logger_notifications_total",
  })
  decodeErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "miscale_logger_decode_errors_total",
  })
  processingErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "miscale_logger_processing_errors_total",
  })
)

func RegisterMetrics(reg prometheus.Registerer) {
  reg.MustRegister(
    sessionsCounter,
    notificationsCounter,
    decodeErrorsCounter,
    processingErrorsCounter,
  )
}

type Scanner interface {
  ScanAll(ctx context.Context, onDevice func(ble.Advertisement)) error
  FindByName(ctx context.Context, name string) (ble.Advertisement, error)
}

type Dialer interface {
  Connect(ctx context.Context, addr string) (ble.Connection, error)
}

type AddressStore interface {
  Load() (value string, ok bool, err error)
  Store(value string) error
}

type Decoder func(data []byte) (device.Measurement, error)

type Acceptor interface {
  Consider(ctx context.Context, m device.Measurement) (filter.Result, error)
}
