// Package sink records accepted weighings: always to a local append-only log and, when
// configured, to a remote table.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertof/go-miscale-logger/device"
	"github.com/rs/zerolog/log"
)

var (
	// ErrWrite marks failures of the local log. These abort the recording.
	ErrWrite = errors.New("sink: local write failed")
	// ErrRemote marks failures of the remote insert. These are logged and otherwise ignored.
	ErrRemote = errors.New("sink: remote insert failed")
)

const DefaultRemoteTimeout = 10 * time.Second

var (
	recordedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_sink_recorded_total",
		Help: "Weighings appended to the local log.",
	})
	localFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_sink_local_failures_total",
		Help: "Weighings which could not be appended to the local log.",
	})
	remoteFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miscale_logger_sink_remote_failures_total",
		Help: "Weighings which could not be inserted into the remote table.",
	})
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(recordedCounter, localFailuresCounter, remoteFailuresCounter)
}

// FormatTime renders timestamps the way both the local log and the remote table store them.
func FormatTime(t time.Time) string {
	return t.Format(time.DateTime)
}

// Row is a weighing as stored in the remote table.
type Row struct {
	Time   string `json:"time"`
	Weight string `json:"weight"`
}

func RowFor(w device.Weighing) Row {
	return Row{
		Time:   FormatTime(w.RecordedAt),
		Weight: device.FormatWeight(w.Weight),
	}
}

type Local interface {
	Append(w device.Weighing) error
}

type Remote interface {
	Insert(ctx context.Context, row Row) error
}

// Discard is the Remote used when no remote table is configured.
type Discard struct{}

func (Discard) Insert(context.Context, Row) error {
	return nil
}

// Recorder writes every weighing to the local log first and then to the remote. Only local
// failures are returned to the caller.
type Recorder struct {
	local         Local
	remote        Remote
	remoteTimeout time.Duration
}

func NewRecorder(local Local, remote Remote, remoteTimeout time.Duration) *Recorder {
	if remote == nil {
		remote = Discard{}
	}

	if remoteTimeout <= 0 {
		remoteTimeout = DefaultRemoteTimeout
	}

	return &Recorder{
		local:         local,
		remote:        remote,
		remoteTimeout: remoteTimeout,
	}
}

func (r *Recorder) Record(ctx context.Context, w device.Weighing) error {
	if err := r.local.Append(w); err != nil {
		localFailuresCounter.Inc()

		if !errors.Is(err, ErrWrite) {
			err = fmt.Errorf("%w: %w", ErrWrite, err)
		}

		return err
	}

	recordedCounter.Inc()

	log.Debug().Stringer("Weighing", w).Msg("sink: appended weighing to local log")

	ctx, cancel := context.WithTimeout(ctx, r.remoteTimeout)
	defer cancel()

	if err := r.remote.Insert(ctx, RowFor(w)); err != nil {
		remoteFailuresCounter.Inc()

		log.Error().
			Err(fmt.Errorf("%w: %w", ErrRemote, err)).
			Stringer("Weighing", w).
			Msg("Failed to insert weighing into the remote table, it is only recorded locally")
	}

	return nil
}
