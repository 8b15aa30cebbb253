// internal/driver/optris/session.go
package optris

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"pyrometer-service/internal/model"
	"pyrometer-service/internal/protocol"
	"pyrometer-service/internal/utils"
	"pyrometer-service/pkg/driver"
)

const defaultModel = "CS Laser"

var _ driver.PyrometerDriver = (*Session)(nil)

// Config represents CS Laser session configuration
type Config struct {
	DeviceID string
	Model    string
	// Serial holds the line parameters; the port is chosen on Connect.
	Serial *protocol.SerialConfig
	// FlushOnShortRead discards unread input after a short or empty response
	// so a late byte cannot be taken as the start of the next answer.
	FlushOnShortRead bool
}

// DefaultConfig returns the CS Laser line parameters with resync enabled
func DefaultConfig(deviceID string) Config {
	return Config{
		DeviceID:         deviceID,
		Model:            defaultModel,
		Serial:           protocol.DefaultSerialConfig(""),
		FlushOnShortRead: true,
	}
}

// Option customizes a Session
type Option func(*Session)

// WithTransportFactory replaces the serial transport
func WithTransportFactory(factory protocol.Factory) Option {
	return func(s *Session) {
		s.newTransport = factory
	}
}

// Session implements driver.PyrometerDriver for the Optris CS Laser.
// It exclusively owns its transport; every exchange holds the session mutex
// from write until the response has been read.
type Session struct {
	config        Config
	newTransport  protocol.Factory
	baseLogger    *zap.Logger
	logger        *utils.DeviceLogger
	eventHandler  driver.EventHandler
	transport     protocol.DeviceProtocol
	port          string
	isConnected   bool
	lastResponse  time.Time
	lastError     error
	healthMetrics *driver.HealthMetrics
	deviceInfo    *driver.DeviceInfo
	mutex         sync.Mutex
}

// NewSession creates a disconnected CS Laser session
func NewSession(config Config, logger *zap.Logger, opts ...Option) *Session {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Serial == nil {
		config.Serial = protocol.DefaultSerialConfig("")
	}

	s := &Session{
		config:        config,
		newTransport:  protocol.NewSerialConnection,
		baseLogger:    logger,
		logger:        utils.NewDeviceLogger(logger, config.DeviceID, config.Model, ""),
		healthMetrics: &driver.HealthMetrics{},
		deviceInfo: &driver.DeviceInfo{
			Model:          config.Model,
			ConnectionType: model.ConnectionTypeSerial,
			Capabilities:   capabilities(),
			Manufacturer:   "Optris GmbH",
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func capabilities() []model.Capability {
	return []model.Capability{
		model.CapabilitySerialNumber,
		model.CapabilityTargetTemperature,
		model.CapabilityHeadTemperature,
		model.CapabilityEmissivity,
		model.CapabilityLaser,
	}
}

// Connect opens the serial channel. Calling it while connected is a no-op.
func (s *Session) Connect(ctx context.Context, port string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isConnected {
		if port != s.port {
			s.logger.Warn("Already connected, ignoring connect request for another port",
				zap.String("requested_port", port),
			)
		}
		return nil
	}

	logger := utils.NewDeviceLogger(s.baseLogger, s.config.DeviceID, s.config.Model, port)
	transport := s.newTransport(s.config.Serial.WithPort(port), logger.Logger)

	if err := transport.Open(ctx); err != nil {
		logger.LogConnection("connect", false, err)
		s.lastError = err
		return &ConnectError{Port: port, Err: err}
	}

	s.logger = logger
	s.transport = transport
	s.port = port
	s.isConnected = true
	s.lastError = nil
	s.deviceInfo.Port = port

	s.logger.LogConnection("connect", true, nil)
	s.notifyEvent("connected", nil)
	return nil
}

// Disconnect closes the serial channel. It is idempotent and a failing close
// still leaves the session disconnected.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isConnected {
		return nil
	}

	err := s.transport.Close()
	s.transport = nil
	s.isConnected = false

	if err != nil && !errors.Is(err, protocol.ErrPortNotOpen) {
		s.logger.LogConnection("disconnect", false, err)
		s.notifyEvent("error", err)
	} else {
		s.logger.LogConnection("disconnect", true, nil)
	}
	s.notifyEvent("disconnected", "requested")
	return nil
}

// IsConnected returns whether the serial channel is open
func (s *Session) IsConnected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isConnected
}

// Port returns the port of the current or last connection
func (s *Session) Port() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.port
}

// GetSerialNumber reads the device serial number
func (s *Session) GetSerialNumber(ctx context.Context) (uint32, error) {
	frame, _ := EncodeRead(OpSerialNumber)

	var serial uint32
	err := s.transact(ctx, frame, func(resp []byte) (err error) {
		serial, err = DecodeSerialNumber(resp)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.mutex.Lock()
	s.deviceInfo.SerialNumber = strconv.FormatUint(uint64(serial), 10)
	s.mutex.Unlock()
	return serial, nil
}

// GetTargetTemperature reads the object temperature in °C
func (s *Session) GetTargetTemperature(ctx context.Context) (float64, error) {
	return s.readTemperature(ctx, OpTargetTemperature)
}

// GetHeadTemperature reads the sensing head temperature in °C
func (s *Session) GetHeadTemperature(ctx context.Context) (float64, error) {
	return s.readTemperature(ctx, OpHeadTemperature)
}

// GetCurrentTargetTemperature reads the unprocessed object temperature in °C
func (s *Session) GetCurrentTargetTemperature(ctx context.Context) (float64, error) {
	return s.readTemperature(ctx, OpCurrentTargetTemperature)
}

func (s *Session) readTemperature(ctx context.Context, op Operation) (float64, error) {
	frame, _ := EncodeRead(op)

	var celsius float64
	err := s.transact(ctx, frame, func(resp []byte) (err error) {
		celsius, err = DecodeTemperature(op, resp)
		return err
	})
	return celsius, err
}

// GetEmissivity reads the configured emissivity
func (s *Session) GetEmissivity(ctx context.Context) (float64, error) {
	frame, _ := EncodeRead(OpReadEmissivity)

	var value float64
	err := s.transact(ctx, frame, func(resp []byte) (err error) {
		value, err = DecodeEmissivity(resp)
		return err
	})
	return value, err
}

// SetEmissivity writes the emissivity and verifies the echo
func (s *Session) SetEmissivity(ctx context.Context, value float64) error {
	frame, err := EncodeSetEmissivity(value)
	if err != nil {
		return err
	}
	return s.transact(ctx, frame, func(resp []byte) error {
		return VerifyEcho(frame, resp)
	})
}

// GetLaser reads the targeting laser state
func (s *Session) GetLaser(ctx context.Context) (bool, error) {
	frame, _ := EncodeRead(OpReadLaser)

	var on bool
	err := s.transact(ctx, frame, func(resp []byte) (err error) {
		on, err = DecodeLaser(resp)
		return err
	})
	return on, err
}

// SetLaser switches the targeting laser and verifies the echo
func (s *Session) SetLaser(ctx context.Context, on bool) error {
	frame := EncodeSetLaser(on)
	return s.transact(ctx, frame, func(resp []byte) error {
		return VerifyEcho(frame, resp)
	})
}

// transact performs exactly one write followed by one fixed-length read
func (s *Session) transact(ctx context.Context, frame CommandFrame, decode func([]byte) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isConnected {
		return ErrNotConnected
	}

	request := frame.Bytes()
	startTime := time.Now()

	resp, written, err := s.exchange(ctx, request, frame.ResponseLen())
	if err == nil {
		err = decode(resp)
		if err != nil && s.config.FlushOnShortRead {
			s.discardInput("Failed to discard input after bad response")
		}
	} else if written {
		// The reply may still be arriving; whatever is left must not be
		// taken as the start of the next answer.
		s.discardInput("Failed to discard input after read error")
	}

	duration := time.Since(startTime)
	s.logger.LogTransaction(frame.Op.String(), request, resp, duration, err)
	s.updateHealthMetrics(err, duration)
	return err
}

// exchange writes request and reads the n byte reply. Once the request is on
// the wire the read runs to completion or timeout even if ctx is cancelled,
// so the reply is always consumed by the exchange that caused it.
func (s *Session) exchange(ctx context.Context, request []byte, n int) ([]byte, bool, error) {
	if err := s.transport.Write(ctx, request); err != nil {
		return nil, false, fmt.Errorf("failed to send command: %w", err)
	}
	resp, err := s.transport.Read(context.WithoutCancel(ctx), n)
	if err != nil {
		return resp, true, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, true, nil
}

// discardInput drops pending input, caller holds the mutex
func (s *Session) discardInput(message string) {
	if err := s.transport.Flush(); err != nil {
		s.logger.Warn(message, zap.Error(err))
	}
}

// updateHealthMetrics updates health metrics, caller holds the mutex
func (s *Session) updateHealthMetrics(err error, responseTime time.Duration) {
	now := time.Now()
	s.healthMetrics.TotalOperations++
	s.healthMetrics.ResponseTime = responseTime

	if err == nil {
		s.lastResponse = now
		s.lastError = nil
		s.healthMetrics.LastSuccessTime = &now
	} else {
		s.lastError = err
		s.healthMetrics.ErrorCount++
		s.healthMetrics.LastErrorTime = &now
		if errors.Is(err, ErrShortRead) {
			s.healthMetrics.ShortReads++
		}
	}

	s.healthMetrics.SuccessRate = float64(s.healthMetrics.TotalOperations-s.healthMetrics.ErrorCount) / float64(s.healthMetrics.TotalOperations)
	s.healthMetrics.HealthScore = int(s.healthMetrics.SuccessRate * 100)
}

// GetDeviceInfo returns device information
func (s *Session) GetDeviceInfo() *driver.DeviceInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	info := *s.deviceInfo
	info.Capabilities = append([]model.Capability(nil), s.deviceInfo.Capabilities...)
	return &info
}

// GetCapabilities returns device capabilities
func (s *Session) GetCapabilities() []model.Capability {
	return capabilities()
}

// GetStatus returns the connection state and the outcome of the last exchange
func (s *Session) GetStatus() *driver.DeviceStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	status := &driver.DeviceStatus{
		Status:       model.DeviceStatusOffline,
		IsReady:      s.isConnected,
		LastResponse: s.lastResponse,
	}
	if s.isConnected {
		status.Status = model.DeviceStatusOnline
	}
	if s.lastError != nil {
		status.HasError = true
		status.ErrorMessage = s.lastError.Error()
		if s.isConnected {
			status.Status = model.DeviceStatusError
		}
	}
	return status
}

// GetHealthMetrics returns a copy of the health metrics
func (s *Session) GetHealthMetrics() *driver.HealthMetrics {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	metrics := *s.healthMetrics
	return &metrics
}

// GetTransportStats returns statistics of the open transport
func (s *Session) GetTransportStats() (protocol.ProtocolStats, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.transport == nil {
		return protocol.ProtocolStats{}, false
	}
	return s.transport.GetStats(), true
}

// SetEventHandler sets the event handler
func (s *Session) SetEventHandler(handler driver.EventHandler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.eventHandler = handler
}

// Close disconnects the session
func (s *Session) Close() error {
	return s.Disconnect(context.Background())
}

// notifyEvent notifies the event handler, caller holds the mutex
func (s *Session) notifyEvent(eventType string, data interface{}) {
	if s.eventHandler == nil {
		return
	}
	switch eventType {
	case "connected":
		s.eventHandler.OnDeviceConnected(s.config.DeviceID)
	case "disconnected":
		s.eventHandler.OnDeviceDisconnected(s.config.DeviceID, data.(string))
	case "error":
		s.eventHandler.OnDeviceError(s.config.DeviceID, data.(error))
	}
}
