package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidContext is returned by Open when required trip context
	// fields are absent.
	ErrInvalidContext = errors.New("invalid trip context")

	// ErrEmptyInput is returned by SubmitUserTurn for empty or
	// whitespace-only text. The session remains usable.
	ErrEmptyInput = errors.New("user input is empty")

	// ErrConcurrentTurn is returned when SubmitUserTurn is invoked while a
	// previous invocation on the same session has not resolved. It aborts
	// the offending call only.
	ErrConcurrentTurn = errors.New("a turn is already in flight for this session")

	// ErrSessionEnded is returned when a turn is submitted after the
	// session reached a terminal outcome or was closed.
	ErrSessionEnded = errors.New("session has ended")

	// ErrGenerationUnavailable wraps generation client failures. The
	// transcript keeps the user's turn; the caller may let the user retry
	// by submitting again.
	ErrGenerationUnavailable = errors.New("generation client unavailable")
)

// SchemaMismatchError reports a malformed structured model output. The call
// is retryable with the same inputs since the output is model-dependent.
type SchemaMismatchError struct {
	Missing []string
	Unknown []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing keys: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown keys: %s", strings.Join(e.Unknown, ", ")))
	}
	if len(parts) == 0 {
		return "schema mismatch"
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}
