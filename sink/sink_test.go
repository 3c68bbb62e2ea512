package sink_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robertof/go-miscale-logger/device"
	"github.com/robertof/go-miscale-logger/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var morning = time.Date(2026, 10, 19, 7, 30, 5, 0, time.Local)

type fakeRemote struct {
	rows []sink.Row
	err  error
}

func (f *fakeRemote) Insert(ctx context.Context, row sink.Row) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("remote insert called without a deadline")
	}
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

type failingLocal struct{}

func (failingLocal) Append(device.Weighing) error {
	return errors.New("disk full")
}

func TestRowFor(t *testing.T) {
	row := sink.RowFor(device.Weighing{Weight: 72.5, RecordedAt: morning})

	assert.Equal(t, sink.Row{Time: "2026-10-19 07:30:05", Weight: "72.50"}, row)
}

func TestCSVAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weight.csv")
	csv := sink.NewCSV(path)

	require.NoError(t, csv.Append(device.Weighing{Weight: 70, RecordedAt: morning}))
	require.NoError(t, csv.Append(device.Weighing{Weight: 72.456, RecordedAt: morning.Add(24 * time.Hour)}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19 07:30:05,70.00\n2026-10-20 07:30:05,72.46\n", string(b))
}

func TestCSVAppendFailure(t *testing.T) {
	csv := sink.NewCSV(filepath.Join(t.TempDir(), "missing-dir", "weight.csv"))

	err := csv.Append(device.Weighing{Weight: 70, RecordedAt: morning})
	assert.ErrorIs(t, err, sink.ErrWrite)
}

func TestRecorderWritesLocalThenRemote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weight.csv")
	remote := &fakeRemote{}
	rec := sink.NewRecorder(sink.NewCSV(path), remote, time.Second)

	require.NoError(t, rec.Record(context.Background(), device.Weighing{Weight: 72.5, RecordedAt: morning}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19 07:30:05,72.50\n", string(b))
	assert.Equal(t, []sink.Row{{Time: "2026-10-19 07:30:05", Weight: "72.50"}}, remote.rows)
}

func TestRecorderSwallowsRemoteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weight.csv")
	remote := &fakeRemote{err: errors.New("connection reset by peer")}
	rec := sink.NewRecorder(sink.NewCSV(path), remote, time.Second)

	require.NoError(t, rec.Record(context.Background(), device.Weighing{Weight: 72.5, RecordedAt: morning}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19 07:30:05,72.50\n", string(b), "the local record stays the source of truth")
}

func TestRecorderPropagatesLocalFailure(t *testing.T) {
	remote := &fakeRemote{}
	rec := sink.NewRecorder(failingLocal{}, remote, time.Second)

	err := rec.Record(context.Background(), device.Weighing{Weight: 72.5, RecordedAt: morning})
	assert.ErrorIs(t, err, sink.ErrWrite)
	assert.Empty(t, remote.rows, "nothing goes to the remote when the local write failed")
}

func TestRecorderWithoutRemote(t *testing.T) {
	rec := sink.NewRecorder(sink.NewCSV(filepath.Join(t.TempDir(), "weight.csv")), nil, 0)

	assert.NoError(t, rec.Record(context.Background(), device.Weighing{Weight: 72.5, RecordedAt: morning}))
}
