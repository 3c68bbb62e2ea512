package sink

import (
	"fmt"
	"os"

	"github.com/robertof/go-miscale-logger/device"
)

// CSV appends one `time,weight` line per weighing to the file at Path.
type CSV struct {
	Path string
}

func NewCSV(path string) *CSV {
	return &CSV{Path: path}
}

func (c *CSV) Append(w device.Weighing) error {
	f, err := os.OpenFile(c.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrWrite, c.Path, err)
	}

	line := FormatTime(w.RecordedAt) + "," + device.FormatWeight(w.Weight) + "\n"

	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("%w: append to %s: %w", ErrWrite, c.Path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrWrite, c.Path, err)
	}

	return nil
}
