package queue

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition indicates a transition was requested from a status
// that does not permit it. The queue state is unchanged.
var ErrInvalidTransition = errors.New("invalid status transition")

func invalidTransition(id string, from Status, op string) error {
	return fmt.Errorf("%w: cannot %s job %s from status %s", ErrInvalidTransition, op, id, from)
}
