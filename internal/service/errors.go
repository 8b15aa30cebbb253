// internal/service/errors.go
package service

import "errors"

var (
	// ErrUnknownCommand is returned for an unsupported command kind
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidPayload is returned when a command payload is missing a field
	ErrInvalidPayload = errors.New("invalid command payload")
	// ErrPortRequired is returned when connecting without a port
	ErrPortRequired = errors.New("serial port is required")
	// ErrAlreadyConnected is returned when connecting to another port while connected
	ErrAlreadyConnected = errors.New("device already connected")
)
