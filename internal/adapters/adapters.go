// Package adapters defines the collaborator ports the emergency pipeline
// drives: evidence capture, sealing, vault upload, contact notification,
// and secure wipe. Each port has a narrow request/response contract; the
// pipeline owns retries, timeouts, and ordering. Implementations here are
// the local filesystem/crypto/Kafka ones plus in-memory fakes; the real
// device recorder sits behind the same Capture interface on the client.
package adapters

//go:generate mockgen -source=adapters.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"
)

// MediaHandle is the single-owner reference to one piece of local evidence.
// Ownership transfers capture -> pipeline -> (vault's uploaded copy) ->
// wiper; it is never duplicated.
type MediaHandle struct {
	ID        string
	Path      string
	Sealed    bool
	Size      int64
	CreatedAt time.Time
}

// Recipient is the notification-facing view of an emergency contact.
type Recipient struct {
	Name    string
	Phone   string
	Primary bool
}

// Coords is an optional device location attached to notifications.
type Coords struct {
	Lat float64
	Lon float64
}

// Message is one escalation notification.
type Message struct {
	RunID    string
	Body     string
	Receipt  string // signed upload receipt, empty if upload never succeeded
	Location *Coords
	Device   string
	SentAt   time.Time
}

// Capture starts and stops evidence recording.
type Capture interface {
	// StartCapture begins recording and returns the handle owning the
	// local media.
	StartCapture(ctx context.Context) (*MediaHandle, error)
	// StopCapture finalizes the recording behind the handle.
	StopCapture(ctx context.Context, h *MediaHandle) error
}

// Sealer encrypts local evidence in place. The pipeline treats it as an
// opaque pass/fail stage; algorithm choice stays inside the implementation.
type Sealer interface {
	Seal(ctx context.Context, h *MediaHandle) error
}

// Vault uploads sealed evidence to durable remote storage and returns a
// signed receipt proving the upload. The pipeline never wipes before it
// holds a receipt or has exhausted its retries.
type Vault interface {
	Upload(ctx context.Context, h *MediaHandle) (receipt string, err error)
}

// Notifier delivers one message to a set of recipients.
type Notifier interface {
	Notify(ctx context.Context, recipients []Recipient, msg Message) error
}

// Wiper destroys local evidence. Wiping a handle that is already gone
// returns sentinel.ErrAlreadyGone (wrapped), which callers treat as a
// distinguishable success, not a failure.
type Wiper interface {
	Wipe(ctx context.Context, h *MediaHandle) error
}
