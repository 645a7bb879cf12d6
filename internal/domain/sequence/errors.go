package sequence

import (
	"errors"
	"fmt"

	"github.com/erp/tradecore/internal/domain/shared"
)

// ErrUniqueConflict signals that a concurrent writer already issued the proposed identifier.
// It is the only failure the allocator retries.
var ErrUniqueConflict = errors.New("sequence: identifier already issued")

// ErrRetryExhausted matches RetryExhaustedError via errors.Is
var ErrRetryExhausted = shared.ErrRetryExhausted

// RetryExhaustedError reports that every permitted attempt lost the race to a concurrent writer.
// Callers must abort document creation; they must not fall back to a preview value.
type RetryExhaustedError struct {
	Scope    Scope
	Attempts int
	Last     error
}

// Error implements the error interface
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("could not allocate identifier for %s after %d attempts: %v", e.Scope, e.Attempts, e.Last)
}

// Is matches ErrRetryExhausted
func (e *RetryExhaustedError) Is(target error) bool {
	return errors.Is(shared.ErrRetryExhausted, target)
}

// Unwrap returns the last conflict
func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}
