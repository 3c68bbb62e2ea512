package collector_test

import (
  "context"
  "sync"

  ble_mod "github.com/go-ble/ble"
  "github.com/robertof/go-miscale-logger/ble"
  "github.com/robertof/go-miscale-logger/device"
  "github.com/robertof/go-miscale-logger/filter"
)

type FakeAdvertisement struct {
  name string
  addr ble_mod.Addr
}

func (f FakeAdvertisement) LocalName() string {
  return f.name
}

func (f FakeAdvertisement) ManufacturerData() []byte {
  return nil
}

func (f FakeAdvertisement) ServiceData() []ble_mod.ServiceData {
  return nil
}

func (f FakeAdvertisement) Services() []ble_mod.UUID {
  return nil
}

func (f FakeAdvertisement) OverflowService() []ble_mod.UUID {
  return nil
}

func (f FakeAdvertisement) TxPowerLevel() int {
  return 0
}

func (f FakeAdvertisement) Connectable() bool {
  return true
}

func (f FakeAdvertisement) SolicitedService() []ble_mod.UUID {
  return nil
}

func (f FakeAdvertisement) RSSI() int {
  return -60
}

func (f FakeAdvertisement) Addr() ble_mod.Addr {
  return f.addr
}

func advertisement(name, addr string) FakeAdvertisement {
  return FakeAdvertisement{name: name, addr: ble_mod.NewAddr(addr)}
}

// fakeScanner replays advertisements during ScanAll and answers FindByName from a fixed set.
type fakeScanner struct {
  quick []ble.Advertisement
  targeted []ble.Advertisement

  scans, finds int
}

func (s *fakeScanner) ScanAll(ctx context.Context, onDevice func(ble.Advertisement)) error {
  s.scans++

  for _, a := range s.quick {
    onDevice(a)
  }

  return nil
}

func (s *fakeScanner) FindByName(ctx context.Context, name string) (ble.Advertisement, error) {
  s.finds++

  for _, a := range s.targeted {
    if a.LocalName() == name {
      return a, nil
    }
  }

  return nil, ble.ErrNoAdvertisement
}

type memStore struct {
  value string
  ok bool
  stores int
}

func (s *memStore) Load() (string, bool, error) {
  return s.value, s.ok, nil
}

func (s *memStore) Store(v string) error {
  s.stores++
  s.value, s.ok = v, true
  return nil
}

// fakeConnection mimics a GATT link: tests push notifications through the subscribed callback
// and end the link with Disconnect.
type fakeConnection struct {
  addr string
  subscribeErr error

  mu sync.Mutex
  onNotify func([]byte)
  subscribed chan struct{}
  disconnected chan struct{}
  closeOnce sync.Once
  closed bool
}

func newFakeConnection(addr string) *fakeConnection {
  return &fakeConnection{
    addr: addr,
    subscribed: make(chan struct{}),
    disconnected: make(chan struct{}),
  }
}

func (c *fakeConnection) Addr() string {
  return c.addr
}

func (c *fakeConnection) Subscribe(uuid ble.UUID, onNotify func([]byte)) error {
  if c.subscribeErr != nil {
    return c.subscribeErr
  }

  c.mu.Lock()
  c.onNotify = onNotify
  c.mu.Unlock()

  close(c.subscribed)

  return nil
}

func (c *fakeConnection) Notify(data []byte) {
  c.mu.Lock()
  cb := c.onNotify
  c.mu.Unlock()

  cb(data)
}

func (c *fakeConnection) Disconnect() {
  c.closeOnce.Do(func() { close(c.disconnected) })
}

func (c *fakeConnection) Disconnected() <-chan struct{} {
  return c.disconnected
}

func (c *fakeConnection) Close() error {
  c.mu.Lock()
  c.closed = true
  c.mu.Unlock()

  c.Disconnect()

  return nil
}

func (c *fakeConnection) isClosed() bool {
  c.mu.Lock()
  defer c.mu.Unlock()

  return c.closed
}

type fakeDialer struct {
  conn *fakeConnection
  err error

  mu sync.Mutex
  dialed []string
}

func (d *fakeDialer) Connect(ctx context.Context, addr string) (ble.Connection, error) {
  d.mu.Lock()
  d.dialed = append(d.dialed, addr)
  d.mu.Unlock()

  if d.err != nil {
    return nil, d.err
  }

  return d.conn, nil
}

type fakeAcceptor struct {
  err error

  mu sync.Mutex
  seen []device.Measurement
}

func (a *fakeAcceptor) Consider(ctx context.Context, m device.Measurement) (filter.Result, error) {
  a.mu.Lock()
  defer a.mu.Unlock()

  a.seen = append(a.seen, m)

  if a.err != nil {
    return filter.Result{}, a.err
  }

  return filter.Result{Verdict: filter.VerdictAccepted}, nil
}

func (a *fakeAcceptor) measurements() []device.Measurement {
  a.mu.Lock()
  defer a.mu.Unlock()

  return append([]device.Measurement(nil), a.seen...)
}
