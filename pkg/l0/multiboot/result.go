package multiboot

import (
	"errors"
	"fmt"
)

// Result is the outcome of Send.
type Result int

// Results.
const (
	Success Result = iota
	InvalidSize
	Canceled
	HandshakeFailure
	FailureDuringTransfer
)

// Errors returned by Result.Err.
var (
	ErrInvalidSize = errors.New("invalid image size")
	ErrCanceled    = errors.New("boot transfer canceled")
	ErrHandshake   = errors.New("failure during handshake")
	ErrTransfer    = errors.New("failure during transfer")
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case InvalidSize:
		return "invalid-size"
	case Canceled:
		return "canceled"
	case HandshakeFailure:
		return "handshake-failure"
	case FailureDuringTransfer:
		return "transfer-failure"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Err maps the result to an error, nil for Success.
func (r Result) Err() error {
	switch r {
	case Success:
		return nil
	case InvalidSize:
		return ErrInvalidSize
	case Canceled:
		return ErrCanceled
	case HandshakeFailure:
		return ErrHandshake
	case FailureDuringTransfer:
		return ErrTransfer
	}
	return fmt.Errorf("unknown boot result %d", int(r))
}

// HandshakeError describes the response which broke the handshake.
type HandshakeError struct {
	Phase Phase
	Slot  int // inbound slot 1..3
	Want  uint16
	Got   uint16
}

// Error implements error.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%s: slot %d answered 0x%04x, want 0x%04x", e.Phase, e.Slot, e.Got, e.Want)
}

// Unwrap allows errors.Is(err, ErrHandshake).
func (e *HandshakeError) Unwrap() error {
	return ErrHandshake
}
