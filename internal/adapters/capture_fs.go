package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FSCapture stages evidence as files under a directory. On the device this
// port fronts the platform recorder; server-side it receives streamed
// chunks. Recording content arrives through AppendChunk between Start and
// Stop.
type FSCapture struct {
	dir string
}

func NewFSCapture(dir string) *FSCapture {
	return &FSCapture{dir: dir}
}

func (c *FSCapture) StartCapture(_ context.Context) (*MediaHandle, error) {
	id := uuid.NewString()
	path := filepath.Join(c.dir, "haven-evidence-"+id+".bin")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return &MediaHandle{ID: id, Path: path, CreatedAt: time.Now()}, nil
}

// AppendChunk appends recorded bytes to the staged file.
func (c *FSCapture) AppendChunk(_ context.Context, h *MediaHandle, chunk []byte) error {
	f, err := os.OpenFile(h.Path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("append chunk: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(chunk); err != nil {
		return fmt.Errorf("append chunk: %w", err)
	}
	return nil
}

func (c *FSCapture) StopCapture(_ context.Context, h *MediaHandle) error {
	f, err := os.OpenFile(h.Path, os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	h.Size = info.Size()
	return nil
}
