package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"haven/pkg/platform/sentinel"
)

// FSWiper destroys staged evidence files: overwrite with zeros, sync,
// remove. Overwriting first keeps the plaintext length of the file out of
// easy recovery on common filesystems; it is best effort, not a forensic
// guarantee.
type FSWiper struct{}

func NewFSWiper() *FSWiper { return &FSWiper{} }

func (w *FSWiper) Wipe(_ context.Context, h *MediaHandle) error {
	info, err := os.Stat(h.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("wipe %s: %w", h.ID, sentinel.ErrAlreadyGone)
		}
		return fmt.Errorf("wipe %s: %w", h.ID, err)
	}

	if err := zeroFill(h.Path, info.Size()); err != nil {
		return fmt.Errorf("wipe %s: %w", h.ID, err)
	}
	if err := os.Remove(h.Path); err != nil {
		return fmt.Errorf("wipe %s: %w", h.ID, err)
	}
	return nil
}

func zeroFill(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	zeros := make([]byte, 32*1024)
	var written int64
	for written < size {
		n := int64(len(zeros))
		if size-written < n {
			n = size - written
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			return err
		}
		written += n
	}
	return f.Sync()
}
