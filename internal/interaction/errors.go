// internal/interaction/errors.go
package interaction

import (
	"fmt"
	"time"
)

// ElementTimeoutError is returned when a selector never reaches the expected
// readiness condition within the wait's timeout. It is the only failure the
// primitives surface to callers besides context cancellation.
type ElementTimeoutError struct {
	Selector  string
	Condition Condition
	Timeout   time.Duration
	// Last holds the most recent error observed while polling, if any.
	Last error
}

func (e *ElementTimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %v waiting for %q to be %s", e.Timeout, e.Selector, e.Condition)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *ElementTimeoutError) Unwrap() error { return e.Last }

// InteractionError wraps a failed action strategy. The primitives recover
// from it locally by switching strategy; it is recorded in Result, never
// returned.
type InteractionError struct {
	Strategy Strategy
	Err      error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s interaction failed: %v", e.Strategy, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }
