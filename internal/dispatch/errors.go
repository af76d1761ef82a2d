package dispatch

import (
	"fmt"

	"github.com/google/uuid"
)

// Error is a failure reported by a worker.
type Error struct {
	Err    error
	Key    string
	ID     uuid.UUID
	Worker int
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s on worker %d: %v", e.Key, e.Worker, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
