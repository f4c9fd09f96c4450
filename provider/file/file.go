// Package file implements a coldcache Slot backed by a single file.
// Saves go through a temp file + rename so readers never observe a torn
// snapshot from a crash mid-write.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	pr "github.com/unkn0wn-root/coldcache/provider"
)

type Slot struct {
	path string
}

var _ pr.Slot = (*Slot)(nil)

func New(path string) (*Slot, error) {
	if path == "" {
		return nil, errors.New("file slot: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file slot: %w", err)
	}
	return &Slot{path: path}, nil
}

func (s *Slot) Load(_ context.Context) ([]byte, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Slot) Save(_ context.Context, snapshot []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".coldcache-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Slot) Wipe(_ context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Slot) Close(_ context.Context) error { return nil }
