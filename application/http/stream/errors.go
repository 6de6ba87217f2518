package stream

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDetached       = errors.New("stream is detached")
	ErrNotReadable    = errors.New("stream is not readable")
	ErrNotWritable    = errors.New("stream is not writable")
	ErrNotSeekable    = errors.New("stream is not seekable")
	ErrNegativeLength = errors.New("length must not be negative")
)

// StateError is returned when an operation is not allowed
// in the current state or mode of the stream.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stream %s: %s", e.Op, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

func (e *StateError) Cause() error { return e.Err }
