package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"haven/pkg/platform/sentinel"
)

// In-memory adapter implementations. They back the zero-dependency server
// configuration and give tests scriptable failure behavior without gomock
// ceremony where a simple script is enough.

// MemoryCapture holds evidence bytes in memory.
type MemoryCapture struct {
	mu    sync.Mutex
	blobs map[string][]byte

	FailStart bool
}

func NewMemoryCapture() *MemoryCapture {
	return &MemoryCapture{blobs: make(map[string][]byte)}
}

func (c *MemoryCapture) StartCapture(_ context.Context) (*MediaHandle, error) {
	if c.FailStart {
		return nil, fmt.Errorf("capture: %w", sentinel.ErrUnavailable)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	c.blobs[id] = []byte("recording:" + id)
	return &MediaHandle{ID: id, Path: "mem://" + id, Size: int64(len(c.blobs[id])), CreatedAt: time.Now()}, nil
}

func (c *MemoryCapture) StopCapture(_ context.Context, h *MediaHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.blobs[h.ID]; !ok {
		return fmt.Errorf("stop capture %s: %w", h.ID, sentinel.ErrNotFound)
	}
	return nil
}

// Bytes returns the captured blob, for wipe bookkeeping and tests.
func (c *MemoryCapture) Bytes(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.blobs[id]
	return b, ok
}

// Delete removes a blob; the MemoryWiper built over this capture uses it.
func (c *MemoryCapture) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.blobs[id]; !ok {
		return false
	}
	delete(c.blobs, id)
	return true
}

// MemorySealer flips the sealed flag. FailTimes scripts leading failures.
type MemorySealer struct {
	mu        sync.Mutex
	FailTimes int
	calls     int
}

func (s *MemorySealer) Seal(_ context.Context, h *MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.FailTimes {
		return fmt.Errorf("seal %s: %w", h.ID, sentinel.ErrUnavailable)
	}
	h.Sealed = true
	return nil
}

// MemoryVault records uploads. FailTimes scripts leading failures so tests
// can exercise the retry bound arithmetic exactly.
type MemoryVault struct {
	mu        sync.Mutex
	uploads   map[string]bool
	FailTimes int
	calls     int
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{uploads: make(map[string]bool)}
}

func (v *MemoryVault) Upload(_ context.Context, h *MediaHandle) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.calls <= v.FailTimes {
		return "", fmt.Errorf("vault upload %s: %w", h.ID, sentinel.ErrUnavailable)
	}
	v.uploads[h.ID] = true
	return "receipt-" + h.ID, nil
}

// Uploaded reports whether the handle's media reached the vault.
func (v *MemoryVault) Uploaded(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.uploads[id]
}

// Attempts reports how many Upload calls were made.
func (v *MemoryVault) Attempts() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// MemoryNotifier records messages.
type MemoryNotifier struct {
	mu        sync.Mutex
	sent      []Message
	perRcpt   int
	FailTimes int
	calls     int
}

func NewMemoryNotifier() *MemoryNotifier { return &MemoryNotifier{} }

func (n *MemoryNotifier) Notify(_ context.Context, recipients []Recipient, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.calls <= n.FailTimes {
		return fmt.Errorf("notify run %s: %w", msg.RunID, sentinel.ErrUnavailable)
	}
	n.sent = append(n.sent, msg)
	n.perRcpt += len(recipients)
	return nil
}

// Sent returns a copy of delivered messages.
func (n *MemoryNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message{}, n.sent...)
}

// Recipients reports the total recipient deliveries.
func (n *MemoryNotifier) Recipients() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.perRcpt
}

// MemoryWiper deletes blobs from a MemoryCapture. Wiping twice surfaces
// ErrAlreadyGone, mirroring the filesystem wiper.
type MemoryWiper struct {
	capture   *MemoryCapture
	mu        sync.Mutex
	wiped     []string
	FailTimes int
	calls     int
}

func NewMemoryWiper(capture *MemoryCapture) *MemoryWiper {
	return &MemoryWiper{capture: capture}
}

func (w *MemoryWiper) Wipe(_ context.Context, h *MediaHandle) error {
	w.mu.Lock()
	w.calls++
	failing := w.calls <= w.FailTimes
	w.mu.Unlock()
	if failing {
		return fmt.Errorf("wipe %s: %w", h.ID, sentinel.ErrUnavailable)
	}
	if !w.capture.Delete(h.ID) {
		return fmt.Errorf("wipe %s: %w", h.ID, sentinel.ErrAlreadyGone)
	}
	w.mu.Lock()
	w.wiped = append(w.wiped, h.ID)
	w.mu.Unlock()
	return nil
}

// Wiped returns the IDs destroyed so far.
func (w *MemoryWiper) Wiped() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.wiped...)
}
