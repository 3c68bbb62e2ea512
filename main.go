package main

import (
  "context"
  "errors"
  "net/http"
  "os"
  "time"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/collectors"
  "github.com/prometheus/client_golang/prometheus/promhttp"
  "github.com/robertof/go-miscale-logger/ble"
  "github.com/robertof/go-miscale-logger/collector"
  "github.com/robertof/go-miscale-logger/device/miscale"
  "github.com/robertof/go-miscale-logger/filter"
  "github.com/robertof/go-miscale-logger/metrics"
  "github.com/robertof/go-miscale-logger/sink"
  "github.com/robertof/go-miscale-logger/store"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
  "golang.org/x/sync/errgroup"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
      zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if cfg.Debug || os.Getenv("DEBUG") != "" {
      zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
      zerolog.SetGlobalLevel(zerolog.InfoLevel)
  }

  if cfg.DiscoverDevices {
    doDeviceDiscovery(cfg)
    return
  }

  log.Info().
    Str("Name", cfg.DeviceName).
    Str("DataFile", cfg.DataFile).
    Str("AddrFile", cfg.AddrFile).
    Str("LastWeightFile", cfg.LastWeightFile).
    Float64("SwingRange", cfg.SwingRange).
    Int("BluetoothDeviceID", cfg.BluetoothDeviceId).
    Msg("Starting with the specified configuration")

  ctx := ble.WrapContextWithSigHandler(context.WithCancel(context.Background()))

  bleHandle := initBle(cfg)
  defer bleHandle.Stop()

  addrCache := store.New(cfg.AddrFile)

  if cfg.ForgetAddress {
    if err := addrCache.Clear(); err != nil {
      log.Fatal().Err(err).Msg("Failed to forget the cached scale address")
    }

    log.Info().Str("AddrFile", cfg.AddrFile).Msg("Forgot cached scale address")
  }

  remote, closeRemote := initRemote(ctx, cfg)
  defer closeRemote()

  recorder := sink.NewRecorder(sink.NewCSV(cfg.DataFile), remote, cfg.RemoteTimeout)

  acceptor := filter.New(store.New(cfg.LastWeightFile), recorder)
  acceptor.SwingRange = cfg.SwingRange
  acceptor.MinWeight = cfg.MinWeight

  resolver := collector.NewResolver(bleHandle, addrCache, cfg.DeviceName)
  resolver.QuickScanTimeout = cfg.QuickScanTimeout
  resolver.TargetedScanTimeout = cfg.TargetedScanTimeout

  session := collector.NewSession(bleHandle, miscale.MeasurementUUID, miscale.Decode, acceptor)
  session.ConnectTimeout = cfg.ConnectTimeout

  loop := collector.NewLoop(resolver, session)
  loop.ReconnectPause = cfg.ReconnectPause

  eg, ctx := errgroup.WithContext(ctx)

  if cfg.MetricsBindAddress != "" {
    serveMetrics(ctx, eg, cfg, acceptor)
  }

  eg.Go(func() error {
    return loop.Run(ctx)
  })

  if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
    log.Fatal().Err(err).Msg("Stopped unexpectedly")
  }

  log.Info().Msg("Shut down")
}

func initBle(cfg config) *ble.Handle {
  // the scale only puts its name in the scan response, which requires active scanning.
  bleHandle, err := ble.InitWithConnParams(cfg.BluetoothDeviceId, cfg.BluetoothConnParams, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  return bleHandle
}

func initRemote(ctx context.Context, cfg config) (sink.Remote, func()) {
  switch {
  case cfg.DatabaseDSN != "":
    pg, err := sink.OpenPostgres(cfg.DatabaseDSN, cfg.RemoteTable)

    if err != nil {
      log.Fatal().Err(err).Msg("Invalid SCALE_DATABASE_DSN")
    }

    if err := pg.Ping(ctx); err != nil {
      log.Warn().Err(err).Msg("Remote database is not reachable right now, will keep trying on every weighing")
    }

    log.Info().Str("Table", cfg.RemoteTable).Msg("Recording weighings to Postgres")

    closeRemote := func() {
      if err := pg.Close(); err != nil {
        log.Warn().Err(err).Msg("Failed to close remote database")
      }
    }

    return sink.NewBreaker(pg, sink.BreakerConfig{Name: "postgres"}), closeRemote
  case cfg.SupabaseURL != "":
    log.Info().
      Str("URL", cfg.SupabaseURL).
      Str("Table", cfg.RemoteTable).
      Msg("Recording weighings to PostgREST")

    client := &http.Client{Timeout: cfg.RemoteTimeout}
    remote := sink.NewPostgREST(cfg.SupabaseURL, cfg.SupabaseKey, cfg.RemoteTable, client)

    return sink.NewBreaker(remote, sink.BreakerConfig{Name: "postgrest"}), func() {}
  default:
    log.Warn().Msg("No remote table configured (SUPA_URL/SUPA_KEY or SCALE_DATABASE_DSN), " +
      "weighings are only recorded locally")

    return sink.Discard{}, func() {}
  }
}

func serveMetrics(ctx context.Context, eg *errgroup.Group, cfg config, acceptor *filter.Filter) {
  registry := prometheus.NewRegistry()

  registry.MustRegister(
    collectors.NewGoCollector(),
    collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
  )

  ble.RegisterMetrics(registry)
  collector.RegisterMetrics(registry)
  filter.RegisterMetrics(registry)
  sink.RegisterMetrics(registry)
  metrics.RegisterCollector(cfg.DeviceName, acceptor.Last, registry)

  mux := http.NewServeMux()
  mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

  srv := &http.Server{
    Addr: cfg.MetricsBindAddress,
    Handler: mux,
    ReadHeaderTimeout: 10 * time.Second,
  }

  log.Info().
    Str("ListenAddress", cfg.MetricsBindAddress).
    Msg("Starting Prometheus server")

  eg.Go(func() error {
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      log.Error().Err(err).Msg("Unable to bind on requested address")
      return err
    }

    return nil
  })

  eg.Go(func() error {
    <-ctx.Done()

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5 * time.Second)
    defer cancel()

    return srv.Shutdown(shutdownCtx)
  })
}
