package ai

import (
	"errors"
	"fmt"
)

// ErrStreamTruncated is reported when the response ended before a completion record.
var ErrStreamTruncated = errors.New("stream ended before completion")

// TransportError is a connection, status or timeout failure talking to the completion endpoint.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is an increment that could not be decoded.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: malformed increment: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func NewProtocolError(line string, err error) error {
	return &ProtocolError{Line: line, Err: err}
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsProtocol(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}
