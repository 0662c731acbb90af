package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var publisherDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "haven_audit_entries_dropped_total",
	Help: "Audit entries dropped because the publisher buffer was full",
})

// Publisher accepts entries from the coordination core without ever
// blocking it. Entries land in a bounded buffer drained by a Worker; when
// the buffer is full the oldest entry is dropped to admit the new one, and
// the drop is counted. The core calls Emit while holding its commit lock,
// so buffer order equals commit order.
type Publisher struct {
	mu     sync.Mutex
	buf    []Entry
	cap    int
	wake   chan struct{}
	logger *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the logger used for drop warnings.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithCapacity bounds the buffer. Values <= 0 fall back to the default.
func WithCapacity(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.cap = n
		}
	}
}

func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		cap:    4096,
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues an entry. It stamps ID and timestamp if unset, never
// blocks, and never fails from the caller's point of view.
func (p *Publisher) Emit(entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	p.mu.Lock()
	if len(p.buf) >= p.cap {
		copy(p.buf, p.buf[1:])
		p.buf = p.buf[:len(p.buf)-1]
		publisherDropped.Inc()
		p.logger.Warn("audit publisher buffer full, dropped oldest entry")
	}
	p.buf = append(p.buf, entry)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Drain removes and returns all buffered entries in emit order.
func (p *Publisher) Drain() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return nil
	}
	out := p.buf
	p.buf = make([]Entry, 0, p.cap/8)
	return out
}

// AwaitEntries blocks until entries are available or ctx ends.
func (p *Publisher) AwaitEntries(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.wake:
		return nil
	}
}
