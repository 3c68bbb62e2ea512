// Package store persists single text values (the cached scale address, the last accepted
// weight) in small files.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File is a scalar persisted in the file at Path.
type File struct {
	Path string
}

func New(path string) *File {
	return &File{Path: path}
}

// Load returns the stored value with surrounding whitespace removed. ok is false when nothing
// has been stored yet.
func (f *File) Load() (value string, ok bool, err error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: read %s: %w", f.Path, err)
	}

	return strings.TrimSpace(string(b)), true, nil
}

// Store replaces the value. The new content is written next to the target and renamed over it,
// so a crash leaves either the old or the new value in place.
func (f *File) Store(value string) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("store: replace %s: %w", f.Path, err)
	}

	return nil
}

// Clear removes the stored value. Clearing an empty store is not an error.
func (f *File) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", f.Path, err)
	}

	return nil
}
