package mgrs

// Error reports a reference that cannot be derived or parsed.
type Error struct {
	Err    error
	Input  string
	Reason string
}

func (e *Error) Error() string {
	msg := "grid reference " + e.Input + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
