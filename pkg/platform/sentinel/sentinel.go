package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyGone: wipe target was already destroyed; distinct from failure
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrCorrupt: persisted value exists but fails to parse
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyGone  = errors.New("already gone")
	ErrInvalidState = errors.New("invalid state")
	ErrCorrupt      = errors.New("corrupt")
	ErrUnavailable  = errors.New("unavailable")
)
