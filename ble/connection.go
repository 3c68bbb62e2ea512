package ble

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var ErrCharacteristicNotFound = errors.New("ble: characteristic not found")

var (
	successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_ble_successful_connections_total",
	})
	failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_ble_failed_connections_total",
	})
	subscriptionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_ble_subscriptions_total",
	})
	disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_ble_disconnections_total",
	})
)

// Connection is an established GATT connection to a single peripheral.
type Connection interface {
	Addr() string
	// Subscribe to value pushes of the characteristic. onNotify is called from the BLE stack's
	// own goroutine and must not block for long.
	Subscribe(uuid UUID, onNotify func([]byte)) error
	// Closed exactly once, when the link goes away for any reason.
	Disconnected() <-chan struct{}
	Close() error
}

type connection struct {
	client ble.Client
	addr   string
}

func (h *Handle) Connect(ctx context.Context, addr string) (Connection, error) {
	client, err := h.dev.Dial(ctx, ble.NewAddr(addr))

	if err != nil {
		failedConnectionsCounter.Inc()
		return nil, err
	}

	successfulConnectionsCounter.Inc()
	log.Debug().Str("Addr", addr).Msg("ble: successfully opened new connection to device")

	go func() {
		<-client.Disconnected()

		disconnectsCounter.Inc()
		log.Debug().Str("Addr", addr).Msg("ble: connection with device closed")
	}()

	return &connection{client: client, addr: addr}, nil
}

func (c *connection) Addr() string {
	return c.addr
}

func (c *connection) Subscribe(uuid UUID, onNotify func([]byte)) error {
	p, err := c.client.DiscoverProfile(true)

	if err != nil {
		return fmt.Errorf("cannot discover profile for device: %w", err)
	}

	char := p.FindCharacteristic(ble.NewCharacteristic(uuid))

	if char == nil {
		return fmt.Errorf("%w: %v", ErrCharacteristicNotFound, uuid)
	}

	// prefer notifications, fall back to indications for peripherals which only offer those.
	indicate := char.Property&ble.CharNotify == 0 && char.Property&ble.CharIndicate != 0

	log.Trace().
		Str("Addr", c.addr).
		Stringer("UUID", uuid).
		Bool("Indicate", indicate).
		Msg("ble: subscribing to characteristic")

	if err := c.client.Subscribe(char, indicate, onNotify); err != nil {
		return fmt.Errorf("failed to subscribe to characteristic '%v': %w", uuid, err)
	}

	subscriptionsCounter.Inc()

	return nil
}

func (c *connection) Disconnected() <-chan struct{} {
	return c.client.Disconnected()
}

func (c *connection) Close() error {
	return c.client.CancelConnection()
}
