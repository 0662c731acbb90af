// Package derrors provides coded domain errors. Services return these so
// transports can translate outcomes into status codes without string
// matching, and so callers can branch on the class of failure rather than
// its wording.
//
// Stores and infrastructure return pkg/platform/sentinel errors; services
// wrap them with a code here before they cross a domain boundary.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeTransitionRejected marks an illegal mode or stage change. Not a
	// bug: the caller raced another trigger or asked for something the
	// current state forbids. Surfaced to the UI as a no-op with reason.
	CodeTransitionRejected Code = "transition_rejected"

	// CodeAdapterTimeout marks a collaborator call that exceeded its stage
	// timeout budget.
	CodeAdapterTimeout Code = "adapter_timeout"

	// CodeAdapterError marks a collaborator-reported failure (capture,
	// upload, notify, wipe).
	CodeAdapterError Code = "adapter_error"

	// CodePersistence marks a settings-store failure. In-memory state stays
	// authoritative while persistence retries in the background.
	CodePersistence Code = "persistence_error"

	// CodeCorruptState marks a persisted value that failed to parse. Loaders
	// resolve this to safe defaults rather than failing startup.
	CodeCorruptState Code = "corrupt_state"

	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a domain error with a classification code. It wraps an optional
// cause for errors.Is/As chains.
type Error struct {
	ErrCode Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{ErrCode: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause chain.
// Wrapping nil returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{ErrCode: code, Message: message, Cause: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// CodeInternal if err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.ErrCode
	}
	return CodeInternal
}

// Is delegates to errors.Is; kept so call sites can stay on one import.
func Is(err, target error) bool { return errors.Is(err, target) }

// ToHTTPStatus maps a code to the HTTP status the transport layer returns.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeTransitionRejected, CodeConflict:
		return http.StatusConflict
	case CodeAdapterTimeout:
		return http.StatusGatewayTimeout
	case CodeAdapterError:
		return http.StatusBadGateway
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePersistence, CodeCorruptState, CodeInternal, CodeInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
