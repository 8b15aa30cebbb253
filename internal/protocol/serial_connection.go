// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
)

// portHandle is the subset of serial.Port used by SerialConnection
type portHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// allow tests to replace the OS serial port
var openPort = func(name string, mode *serial.Mode) (portHandle, error) {
	return serial.Open(name, mode)
}

// SerialConnection implements DeviceProtocol for serial connections
type SerialConnection struct {
	config *SerialConfig
	port   portHandle
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool

	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
	operations   atomic.Int64
	errorCount   atomic.Int64
	shortReads   atomic.Int64
	lastActivity atomic.Time
	avgLatency   atomic.Duration
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) DeviceProtocol {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}
}

// Open opens the serial connection
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	mode, err := sc.mode()
	if err != nil {
		return err
	}

	sc.logger.Info("Opening serial port",
		zap.Int("baud_rate", mode.BaudRate),
		zap.Int("data_bits", mode.DataBits),
		zap.String("parity", sc.config.Parity),
		zap.String("flow_control", sc.config.FlowControl),
	)

	if fc := sc.config.FlowControl; fc != "" && fc != FlowControlNone {
		sc.logger.Warn("Flow control not supported by serial backend, line runs without it",
			zap.String("requested", fc),
		)
	}

	port, err := openPort(sc.config.Port, mode)
	if err != nil {
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port %s: %w", sc.config.Port, err)
	}

	if err := port.SetReadTimeout(sc.config.Timeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	// Drop anything the device sent before we were listening.
	if err := port.ResetInputBuffer(); err != nil {
		sc.logger.Warn("Failed to reset input buffer", zap.Error(err))
	}

	sc.port = port
	sc.isOpen = true
	sc.lastActivity.Store(time.Now())

	sc.logger.Info("Serial port opened successfully")
	return nil
}

// mode translates the configuration into go.bug.st/serial terms.
// go.bug.st/serial exposes no software flow control switch; CS Laser frames
// are at most three bytes, so the device never has to throttle us.
func (sc *SerialConnection) mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: sc.config.BaudRate,
		DataBits: sc.config.DataBits,
	}

	switch sc.config.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %d", sc.config.StopBits)
	}

	switch sc.config.Parity {
	case "none", "":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unsupported parity: %s", sc.config.Parity)
	}

	return mode, nil
}

// Close closes the serial connection
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	err := sc.port.Close()
	sc.port = nil
	sc.isOpen = false

	if err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sc.logger.Info("Serial port closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen && sc.port != nil
}

// Write writes data to the serial port
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return ErrPortNotOpen
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	startTime := time.Now()
	n, err := sc.port.Write(data)
	if err != nil {
		sc.errorCount.Inc()
		sc.logger.Error("Serial write failed", zap.Error(err))
		return fmt.Errorf("failed to write to serial port: %w", err)
	}

	if n != len(data) {
		sc.errorCount.Inc()
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	sc.bytesWritten.Add(int64(n))
	sc.operations.Inc()
	sc.lastActivity.Store(time.Now())
	sc.updateAverageLatency(time.Since(startTime))

	sc.logger.Debug("Serial write completed", zap.Binary("data", data))
	return nil
}

// Read reads up to n bytes, accumulating partial reads until n bytes arrived
// or the configured timeout elapsed for the whole call.
func (sc *SerialConnection) Read(ctx context.Context, n int) ([]byte, error) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return nil, ErrPortNotOpen
	}

	startTime := time.Now()
	deadline := startTime.Add(sc.config.Timeout)
	result := make([]byte, 0, n)
	chunk := make([]byte, n)

	for len(result) < n {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := sc.port.SetReadTimeout(remaining); err != nil {
			sc.errorCount.Inc()
			return result, fmt.Errorf("failed to set read timeout: %w", err)
		}

		k, err := sc.port.Read(chunk[:n-len(result)])
		result = append(result, chunk[:k]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			sc.errorCount.Inc()
			sc.logger.Error("Serial read failed", zap.Error(err))
			return result, fmt.Errorf("failed to read from serial port: %w", err)
		}
		if k == 0 {
			// go.bug.st/serial returns 0, nil when the read timeout expires
			break
		}
	}

	sc.bytesRead.Add(int64(len(result)))
	sc.operations.Inc()
	sc.lastActivity.Store(time.Now())
	sc.updateAverageLatency(time.Since(startTime))
	if len(result) < n {
		sc.shortReads.Inc()
	}

	sc.logger.Debug("Serial read completed",
		zap.Int("expected", n),
		zap.Binary("data", result),
	)
	return result, nil
}

// Flush discards any unread input
func (sc *SerialConnection) Flush() error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return ErrPortNotOpen
	}

	if err := sc.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	return nil
}

// GetProtocolType returns the protocol type
func (sc *SerialConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// GetStats returns a snapshot of the transfer statistics
func (sc *SerialConnection) GetStats() ProtocolStats {
	return ProtocolStats{
		BytesWritten:   sc.bytesWritten.Load(),
		BytesRead:      sc.bytesRead.Load(),
		OperationCount: sc.operations.Load(),
		ErrorCount:     sc.errorCount.Load(),
		ShortReads:     sc.shortReads.Load(),
		LastActivity:   sc.lastActivity.Load(),
		AverageLatency: sc.avgLatency.Load(),
		IsConnected:    sc.IsOpen(),

		FlowControl:          FlowControlNone,
		RequestedFlowControl: sc.config.FlowControl,
	}
}

// updateAverageLatency updates the running average latency
func (sc *SerialConnection) updateAverageLatency(newLatency time.Duration) {
	current := sc.avgLatency.Load()
	if current == 0 {
		sc.avgLatency.Store(newLatency)
	} else {
		sc.avgLatency.Store((current + newLatency) / 2)
	}
}
