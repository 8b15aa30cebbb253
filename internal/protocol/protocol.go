// internal/protocol/protocol.go
package protocol

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"pyrometer-service/internal/model"
)

// ErrPortNotOpen is returned by transfers on a closed connection
var ErrPortNotOpen = errors.New("serial port not open")

// DeviceProtocol is a half-duplex byte channel to a device. Implementations
// are not safe for interleaved Write/Read pairs from different goroutines;
// callers must serialize whole exchanges.
type DeviceProtocol interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication
	Write(ctx context.Context, data []byte) error
	// Read blocks until n bytes arrived or the read timeout elapsed and
	// returns whatever was received. A short slice is not an error.
	Read(ctx context.Context, n int) ([]byte, error)
	// Flush discards unread input.
	Flush() error

	// Protocol information
	GetProtocolType() model.ConnectionType
	GetStats() ProtocolStats
}

// Factory builds an unopened protocol for a serial configuration
type Factory func(config *SerialConfig, logger *zap.Logger) DeviceProtocol

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	ShortReads     int64         `json:"short_reads"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`

	// FlowControl is what the line actually runs with; RequestedFlowControl
	// is what the configuration asked for.
	FlowControl          string `json:"flow_control,omitempty"`
	RequestedFlowControl string `json:"requested_flow_control,omitempty"`
}
