package clip

// Error reports a topology failure that survived the repair retry, or a
// geometry that could not be built at all.
type Error struct {
	Err      error
	Op       string
	Repaired bool
}

func (e *Error) Error() string {
	msg := "geometry " + e.Op
	if e.Repaired {
		msg += " after repair"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
