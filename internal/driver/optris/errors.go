// internal/driver/optris/errors.go
package optris

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by accessors while the session is disconnected
	ErrNotConnected = errors.New("device not connected")
	// ErrShortRead is returned when fewer bytes than expected arrived
	ErrShortRead = errors.New("short read")
	// ErrTimeout is returned when no byte arrived within the read timeout
	ErrTimeout = errors.New("no response from device")
	// ErrFrameTooLong is returned when a response exceeds the expected length
	ErrFrameTooLong = errors.New("response longer than expected")
	// ErrAckMismatch is returned when a write echo disagrees with the request
	ErrAckMismatch = errors.New("write echo mismatch")
	// ErrInvalidEmissivity is returned for values outside [0, 1]
	ErrInvalidEmissivity = errors.New("emissivity must be between 0.000 and 1.000")
	// ErrUnknownOperation is returned for operations missing from the opcode table
	ErrUnknownOperation = errors.New("unknown operation")
)

// ConnectError reports a failure to open the serial channel
type ConnectError struct {
	Port string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response frame of the wrong length
type DecodeError struct {
	Op       Operation
	Expected int
	Got      int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: expected %d response bytes, got %d", e.Op, e.Expected, e.Got)
}

// Unwrap exposes ErrShortRead (and ErrTimeout for an empty response) or
// ErrFrameTooLong.
func (e *DecodeError) Unwrap() []error {
	switch {
	case e.Got == 0:
		return []error{ErrShortRead, ErrTimeout}
	case e.Got < e.Expected:
		return []error{ErrShortRead}
	default:
		return []error{ErrFrameTooLong}
	}
}

// AckMismatchError reports a write whose echo differs from the written value.
// The device state after such a write is unknown.
type AckMismatchError struct {
	Op   Operation
	Want int
	Got  int
}

func (e *AckMismatchError) Error() string {
	return fmt.Sprintf("%s: device echoed %d, expected %d", e.Op, e.Got, e.Want)
}

func (e *AckMismatchError) Unwrap() error {
	return ErrAckMismatch
}
