package projection

import "fmt"

// Error reports a point outside the valid domain of a zone projection.
type Error struct {
	Err    error
	Op     string
	Reason string
	Ref    ZoneRef
	X, Y   float64
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("projection %s %s (%g, %g): %s", e.Op, e.Ref, e.X, e.Y, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
