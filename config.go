package main

import (
  "errors"
  "flag"
  "fmt"
  "io/fs"
  "os"
  "time"

  "github.com/joho/godotenv"
  "github.com/robertof/go-miscale-logger/ble"
  "github.com/robertof/go-miscale-logger/collector"
  "github.com/robertof/go-miscale-logger/device/miscale"
  "github.com/robertof/go-miscale-logger/filter"
  "github.com/robertof/go-miscale-logger/sink"
  "github.com/rs/zerolog/log"
)

type config struct {
  Debug, Trace bool
  DeviceName string
  DiscoverDevices bool
  ForgetAddress bool
  BluetoothDeviceId int
  BluetoothConnParams ble.ConnParams
  AddrFile, DataFile, LastWeightFile string
  SwingRange, MinWeight float64
  QuickScanTimeout, TargetedScanTimeout time.Duration
  ConnectTimeout, ReconnectPause time.Duration
  RemoteTable string
  RemoteTimeout time.Duration
  MetricsBindAddress string

  // from the environment
  SupabaseURL, SupabaseKey string
  DatabaseDSN string
}

// Values from a .env file in the working directory are added to the environment, without
// overriding variables which are already set.
func loadDotEnv() {
  err := godotenv.Load()

  if err != nil && !errors.Is(err, fs.ErrNotExist) {
    log.Warn().Err(err).Msg("Failed to load .env file")
  }
}

func ParseArgs() config {
  var cfg config

  loadDotEnv()

  cfg.BluetoothConnParams = ble.ConnParamsDefault

  flag.StringVar(&cfg.DeviceName, "name", miscale.DefaultName, "Advertised name of the scale")
  flag.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", 0, "Bluetooth (HCI) device ID")
  flag.Var(&cfg.BluetoothConnParams, "bluetooth-connection-params", "Bluetooth connection parameters (one of 'default' or 'power-saving')")
  flag.BoolVar(&cfg.DiscoverDevices, "discover", false, "Discover available BLE devices and quit")
  flag.BoolVar(&cfg.ForgetAddress, "forget-address", false, "Forget the cached scale address and scan for it again")
  flag.StringVar(&cfg.AddrFile, "addr-file", "./miscale_addr.txt", "Where the scale address is cached")
  flag.StringVar(&cfg.DataFile, "data-file", "./weight.csv", "Local log the weighings are appended to")
  flag.StringVar(&cfg.LastWeightFile, "last-weight-file", "./last_weight.txt", "Where the last accepted weight is kept")
  flag.Float64Var(&cfg.SwingRange, "swing-range", filter.DefaultSwingRange,
    "Maximum difference in kg from the last accepted weight for a measurement to be recorded")
  flag.Float64Var(&cfg.MinWeight, "min-weight", filter.DefaultMinWeight,
    "Measurements at or below this weight in kg are ignored")
  flag.DurationVar(&cfg.QuickScanTimeout, "quick-scan", collector.DefaultQuickScanTimeout,
    "Duration of the scan looking for the scale among all advertising devices")
  flag.DurationVar(&cfg.TargetedScanTimeout, "targeted-scan", collector.DefaultTargetedScanTimeout,
    "Duration of the scan looking for the scale by name, if the quick scan missed it")
  flag.DurationVar(&cfg.ConnectTimeout, "connect-timeout", collector.DefaultConnectTimeout,
    "Timeout for each connection attempt")
  flag.DurationVar(&cfg.ReconnectPause, "reconnect-pause", collector.DefaultReconnectPause,
    "Pause between connection attempts")
  flag.StringVar(&cfg.RemoteTable, "remote-table", "weight", "Remote table the weighings are inserted into")
  flag.DurationVar(&cfg.RemoteTimeout, "remote-timeout", sink.DefaultRemoteTimeout,
    "Timeout for each remote insert")
  flag.StringVar(&cfg.MetricsBindAddress, "metrics-bind", "",
    "Where Prometheus metrics are served, e.g. 'localhost:9103'. Disabled if empty")
  flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  flag.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  flag.Parse()

  cfg.SupabaseURL = os.Getenv("SUPA_URL")
  cfg.SupabaseKey = os.Getenv("SUPA_KEY")
  cfg.DatabaseDSN = os.Getenv("SCALE_DATABASE_DSN")

  if err := cfg.validate(); err != nil {
    fmt.Fprintf(os.Stderr, "Error: %v\n", err)
    flag.Usage()
    os.Exit(1)
  }

  return cfg
}

func (cfg config) validate() error {
  if cfg.DeviceName == "" {
    return errors.New("-name must not be empty")
  }

  if cfg.SwingRange < 0 || cfg.MinWeight < 0 {
    return errors.New("-swing-range and -min-weight must not be negative")
  }

  for name, d := range map[string]time.Duration{
    "quick-scan": cfg.QuickScanTimeout,
    "targeted-scan": cfg.TargetedScanTimeout,
    "connect-timeout": cfg.ConnectTimeout,
    "remote-timeout": cfg.RemoteTimeout,
  } {
    if d <= 0 {
      return fmt.Errorf("-%s must be positive, got %v", name, d)
    }
  }

  if cfg.ReconnectPause < 0 {
    return errors.New("-reconnect-pause must not be negative")
  }

  if cfg.SupabaseURL != "" && cfg.SupabaseKey == "" {
    return errors.New("SUPA_URL is set but SUPA_KEY is missing")
  }

  return nil
}
