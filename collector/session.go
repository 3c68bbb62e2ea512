package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/robertof/go-miscale-logger/ble"
	"github.com/rs/zerolog/log"
)

const (
	DefaultConnectTimeout = 10 * time.Second

	// notifications waiting for the processing goroutine before the BLE stack gets blocked.
	notificationQueueSize = 32
)

type notification struct {
	data       []byte
	receivedAt time.Time
}

// Session runs one connect, subscribe, wait-for-disconnect cycle. Notifications are processed
// one at a time, in the order they arrived, on the goroutine calling Run.
type Session struct {
	ConnectTimeout time.Duration
	Characteristic ble.UUID
	Now            func() time.Time

	dialer   Dialer
	decode   Decoder
	acceptor Acceptor
}

func NewSession(dialer Dialer, characteristic ble.UUID, decode Decoder, acceptor Acceptor) *Session {
	return &Session{
		ConnectTimeout: DefaultConnectTimeout,
		Characteristic: characteristic,
		Now:            time.Now,
		dialer:         dialer,
		decode:         decode,
		acceptor:       acceptor,
	}
}

// Run blocks until the device disconnects, which is the normal way for a session to end and
// returns nil. Errors are only returned when connecting or subscribing failed, or when ctx is
// cancelled.
func (s *Session) Run(ctx context.Context, addr string) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.ConnectTimeout)
	conn, err := s.dialer.Connect(dialCtx, addr)
	cancel()

	if err != nil {
		sessionsCounter.WithLabelValues("connect_failed").Inc()
		return fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}

	log.Info().Str("Addr", addr).Msg("Connected, enabling notifications")

	queue := make(chan notification, notificationQueueSize)
	done := make(chan struct{})
	defer close(done)

	err = conn.Subscribe(s.Characteristic, func(data []byte) {
		// the BLE stack owns data, copy it before handing it over.
		n := notification{
			data:       append([]byte(nil), data...),
			receivedAt: s.Now(),
		}

		select {
		case queue <- n:
		case <-done:
		}
	})

	if err != nil {
		sessionsCounter.WithLabelValues("subscribe_failed").Inc()

		if closeErr := conn.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Str("Addr", addr).Msg("Failed to close connection after subscribe error")
		}

		return fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}

	log.Info().Str("Addr", addr).Msg("Notifications enabled, waiting for data")

	for {
		select {
		case n := <-queue:
			s.process(ctx, n)
		case <-conn.Disconnected():
			s.drain(ctx, queue)
			sessionsCounter.WithLabelValues("disconnected").Inc()
			log.Info().Str("Addr", addr).Msg("Disconnected")

			return nil
		case <-ctx.Done():
			sessionsCounter.WithLabelValues("cancelled").Inc()

			if err := conn.Close(); err != nil {
				log.Debug().Err(err).Str("Addr", addr).Msg("Failed to close connection on shutdown")
			}

			return ctx.Err()
		}
	}
}

// process whatever was delivered before the disconnect was noticed.
func (s *Session) drain(ctx context.Context, queue chan notification) {
	for {
		select {
		case n := <-queue:
			s.process(ctx, n)
		default:
			return
		}
	}
}

func (s *Session) process(ctx context.Context, n notification) {
	notificationsCounter.Inc()

	m, err := s.decode(n.data)

	if err != nil {
		decodeErrorsCounter.Inc()

		log.Warn().
			Err(err).
			Hex("Data", n.data).
			Msg("Failed to decode notification")

		return
	}

	m.ObservedAt = n.receivedAt

	log.Trace().
		Hex("Data", n.data).
		Stringer("Measurement", m).
		Msg("Decoded notification")

	res, err := s.acceptor.Consider(ctx, m)

	if err != nil {
		processingErrorsCounter.Inc()

		log.Error().
			Err(err).
			Stringer("Measurement", m).
			Msg("Failed to process measurement")

		return
	}

	log.Trace().Stringer("Result", res).Msg("Processed measurement")
}
