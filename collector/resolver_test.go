package collector_test

import (
  "context"
  "errors"
  "testing"

  "github.com/robertof/go-miscale-logger/ble"
  "github.com/robertof/go-miscale-logger/collector"
)

const scaleName = "MI SCALE2"

func TestResolve_CachedAddressSkipsScanning(t *testing.T) {
  scanner := &fakeScanner{
    quick: []ble.Advertisement{advertisement(scaleName, "11:22:33:44:55:66")},
  }
  cache := &memStore{value: "aa:bb:cc:dd:ee:ff", ok: true}
  r := collector.NewResolver(scanner, cache, scaleName)

  first, err := r.Resolve(context.Background())

  if err != nil {
    t.Fatalf("Resolve() got error: %v", err)
  }

  second, err := r.Resolve(context.Background())

  if err != nil {
    t.Fatalf("Resolve() got error: %v", err)
  }

  if first != "aa:bb:cc:dd:ee:ff" || second != first {
    t.Fatalf("Resolve(): got %q then %q, wanted %q twice", first, second, "aa:bb:cc:dd:ee:ff")
  }

  if scanner.scans != 0 || scanner.finds != 0 || cache.stores != 0 {
    t.Fatalf("Resolve() touched the radio or the cache: %d scans, %d finds, %d stores",
      scanner.scans, scanner.finds, cache.stores)
  }
}

func TestResolve_QuickScanFindsDevice(t *testing.T) {
  scanner := &fakeScanner{
    quick: []ble.Advertisement{
      advertisement("", "01:02:03:04:05:06"),
      advertisement("MI SCALE2 ", "01:02:03:04:05:07"),
      advertisement(scaleName, "aa:bb:cc:dd:ee:ff"),
    },
  }
  cache := &memStore{}
  r := collector.NewResolver(scanner, cache, scaleName)

  got, err := r.Resolve(context.Background())

  if err != nil {
    t.Fatalf("Resolve() got error: %v", err)
  }

  if got != "aa:bb:cc:dd:ee:ff" || cache.value != got {
    t.Fatalf("Resolve(): got %q (cached %q), wanted %q", got, cache.value, "aa:bb:cc:dd:ee:ff")
  }

  if scanner.finds != 0 {
    t.Fatalf("Resolve() ran a targeted scan although the quick scan found the device")
  }

  // the second process start must not scan again.
  if _, err := r.Resolve(context.Background()); err != nil || scanner.scans != 1 {
    t.Fatalf("Resolve() after caching: got error %v and %d scans, wanted 1 scan", err, scanner.scans)
  }
}

func TestResolve_FallsBackToTargetedScan(t *testing.T) {
  scanner := &fakeScanner{
    quick: []ble.Advertisement{advertisement("Other", "01:02:03:04:05:06")},
    targeted: []ble.Advertisement{advertisement(scaleName, "aa:bb:cc:dd:ee:ff")},
  }
  cache := &memStore{}
  r := collector.NewResolver(scanner, cache, scaleName)

  got, err := r.Resolve(context.Background())

  if err != nil {
    t.Fatalf("Resolve() got error: %v", err)
  }

  if got != "aa:bb:cc:dd:ee:ff" || cache.value != got {
    t.Fatalf("Resolve(): got %q (cached %q), wanted %q", got, cache.value, "aa:bb:cc:dd:ee:ff")
  }

  if scanner.scans != 1 || scanner.finds != 1 {
    t.Fatalf("Resolve(): got %d scans and %d finds, wanted 1 each", scanner.scans, scanner.finds)
  }
}

func TestResolve_DeviceNotFound(t *testing.T) {
  scanner := &fakeScanner{}
  cache := &memStore{}
  r := collector.NewResolver(scanner, cache, scaleName)

  _, err := r.Resolve(context.Background())

  if !errors.Is(err, collector.ErrDeviceNotFound) {
    t.Fatalf("Resolve(): got error %v, wanted %v", err, collector.ErrDeviceNotFound)
  }

  if cache.ok {
    t.Fatalf("Resolve() cached %q although nothing was found", cache.value)
  }
}
