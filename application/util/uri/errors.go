package uri

import "fmt"

// ParseError is returned when a URI, or one of its components, is malformed.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing uri %q: %s", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Cause() error { return e.Err }
