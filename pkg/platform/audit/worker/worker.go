// Package worker drains the audit publisher into a store. A store error is
// logged and the batch retried after a short pause; the journal is
// best-effort and must never take the core down with it.
package worker

import (
	"context"
	"log/slog"
	"time"

	"haven/pkg/platform/audit"
)

const retryPause = 500 * time.Millisecond

type Worker struct {
	pub    *audit.Publisher
	store  audit.Store
	logger *slog.Logger
}

func New(pub *audit.Publisher, store audit.Store, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{pub: pub, store: store, logger: logger}
}

// Run drains until ctx ends, then flushes whatever is still buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.pub.AwaitEntries(ctx); err != nil {
			w.flush(context.Background())
			return err
		}
		w.flush(ctx)
	}
}

func (w *Worker) flush(ctx context.Context) {
	for _, entry := range w.pub.Drain() {
		w.appendWithRetry(ctx, entry)
	}
}

// appendWithRetry makes one retry after a pause, then gives up on the
// entry. Losing a journal line beats wedging the drain loop behind a dead
// store.
func (w *Worker) appendWithRetry(ctx context.Context, entry audit.Entry) {
	if err := w.store.Append(ctx, entry); err == nil {
		return
	} else {
		w.logger.Warn("audit append failed, retrying once", "error", err, "trigger", entry.Trigger)
	}
	select {
	case <-ctx.Done():
	case <-time.After(retryPause):
	}
	if err := w.store.Append(ctx, entry); err != nil {
		w.logger.Error("audit append failed, entry lost", "error", err, "trigger", entry.Trigger)
	}
}
