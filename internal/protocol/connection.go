// internal/protocol/connection.go
package protocol

import "time"

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Port        string        `json:"port"`
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	FlowControl string        `json:"flow_control"`
	Timeout     time.Duration `json:"timeout"`
}

// Line parameters of the CS Laser serial interface
const (
	DefaultBaudRate    = 9600
	DefaultDataBits    = 8
	DefaultStopBits    = 1
	DefaultParity      = "none"
	DefaultFlowControl = "xonxoff"
	DefaultTimeout     = time.Second
)

// FlowControlNone is the only flow control the serial backend applies
const FlowControlNone = "none"

// DefaultSerialConfig returns the fixed CS Laser line parameters for port
func DefaultSerialConfig(port string) *SerialConfig {
	return &SerialConfig{
		Port:        port,
		BaudRate:    DefaultBaudRate,
		DataBits:    DefaultDataBits,
		StopBits:    DefaultStopBits,
		Parity:      DefaultParity,
		FlowControl: DefaultFlowControl,
		Timeout:     DefaultTimeout,
	}
}

// WithPort returns a copy of c addressed to port
func (c SerialConfig) WithPort(port string) *SerialConfig {
	c.Port = port
	return &c
}
