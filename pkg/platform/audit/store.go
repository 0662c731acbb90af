package audit

import "context"

// Store persists audit entries. Implementations must preserve append
// order: ListRecent returns newest first, and two entries appended from the
// same goroutine are never reordered.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
