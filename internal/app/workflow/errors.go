// internal/app/workflow/errors.go
package workflow

import (
	"errors"
	"fmt"
)

// Error kinds returned by the custody transfer and audit session engines.
// Every engine operation either fully succeeds or fails with one of these
// and leaves no partial state behind. Callers branch with errors.Is.
var (
	// ErrNotFound: unknown equipment, assignment, session, or asset tag.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed: out-of-order approval, double approval, action
	// on a terminal record, or opening a duplicate transfer/session.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidState: the target record exists but its current state does
	// not admit the operation, e.g. scanning into a completed session.
	ErrInvalidState = errors.New("invalid state")
)

// NotFound wraps ErrNotFound with a description of what was missing.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// PreconditionFailed wraps ErrPreconditionFailed with the violated condition.
func PreconditionFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// InvalidState wraps ErrInvalidState with the offending state.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
