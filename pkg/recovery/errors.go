package recovery

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEvent indicates a state received an event it has no
// transition for.
var ErrUnexpectedEvent = errors.New("unexpected event")

// unexpectedEventError names the state and event involved, for logging.
type unexpectedEventError struct {
	State string
	Event Event
}

func (e unexpectedEventError) Error() string {
	return fmt.Sprintf("state %q: unexpected event %s", e.State, e.Event)
}

func (e unexpectedEventError) Unwrap() error { return ErrUnexpectedEvent }
