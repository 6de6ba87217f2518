package client

// TransportError is a failure to exchange a request, as opposed to an error status.
type TransportError struct {
	Op  string
	URI string
	Err error
}

func (e *TransportError) Error() string {
	msg := e.Op
	if e.URI != "" {
		msg += " " + e.URI
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Cause() error  { return e.Err }
