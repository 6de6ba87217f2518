package status

import (
	"fmt"
)

type Error struct {
	cause  error
	Status Status
}

func NewError(err error, status Status) Error {
	return Error{cause: err, Status: status}
}

func (e Error) Error() string {
	cause := ""
	if e.cause != nil {
		cause = e.cause.Error()
	}

	return fmt.Sprintf(
		"%d %s: %q", e.Status.Code, e.Status.ReasonPhrase, cause,
	)
}

func (e Error) Cause() error {
	return e.cause
}

func (e Error) Unwrap() error {
	return e.cause
}

// InvalidError is returned when status code is not registered.
type InvalidError struct {
	Code uint
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid status code: %d", e.Code)
}
