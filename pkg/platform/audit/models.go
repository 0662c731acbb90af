// Package audit is the append-only journal of mode transitions. Every
// commit and every rejection the coordination core makes becomes one
// immutable Entry. The core never reads the journal on its hot path and
// never blocks on it: entries go through a bounded best-effort Publisher
// drained by a Worker.
package audit

import (
	"time"

	"github.com/google/uuid"

	"haven/pkg/domain"
)

// Outcome values recorded on entries. Rejections carry the reason in
// Entry.Reason rather than minting an outcome per reason.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Entry is one immutable record of a mode transition attempt. The core
// appends; nothing in this repository mutates or deletes. Retention policy
// belongs to whoever owns the journal's backing store.
type Entry struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	FromMode  domain.Mode `json:"from_mode"`
	ToMode    domain.Mode `json:"to_mode"`
	Trigger   string      `json:"trigger"`
	Outcome   string      `json:"outcome"`
	Reason    string      `json:"reason,omitempty"`
	RunID     string      `json:"run_id,omitempty"`
	Device    string      `json:"device,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}
