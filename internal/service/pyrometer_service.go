// internal/service/pyrometer_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pyrometer-service/internal/config"
	"pyrometer-service/internal/driver/optris"
	"pyrometer-service/internal/model"
	"pyrometer-service/internal/poller"
	"pyrometer-service/internal/protocol"
	"pyrometer-service/internal/repository"
	"pyrometer-service/internal/utils"
	"pyrometer-service/pkg/driver"
)

// PyrometerService owns the device session, its poller and the command gate.
// Every foreground exchange with the device goes through IssueCommand,
// Connect or Disconnect, which hold the gate for their whole duration.
type PyrometerService struct {
	config        *config.Config
	deviceID      string
	session       driver.PyrometerDriver
	gate          *poller.Gate
	operationRepo repository.OperationRepository
	eventBus      *EventBus
	logger        *utils.ServiceLogger

	mu            sync.RWMutex
	coordinator   *poller.Coordinator
	lastReading   model.TemperatureReading
	lastSampleErr error
	callbacks     []func(celsius float64, ts time.Time)
}

// NewPyrometerService creates a new pyrometer service instance
func NewPyrometerService(
	config *config.Config,
	session driver.PyrometerDriver,
	operationRepo repository.OperationRepository,
	eventBus *EventBus,
	logger *zap.Logger,
) *PyrometerService {
	deviceID := config.Device.ID
	if deviceID == "" {
		deviceID = "cslaser-1"
	}

	session.SetEventHandler(NewDeviceEventHandler(eventBus, logger))

	return &PyrometerService{
		config:        config,
		deviceID:      deviceID,
		session:       session,
		gate:          poller.NewGate(logger),
		operationRepo: operationRepo,
		eventBus:      eventBus,
		logger:        utils.NewServiceLogger(logger, "pyrometer-service"),
	}
}

// DeviceID returns the identifier used in events and the journal
func (ps *PyrometerService) DeviceID() string {
	return ps.deviceID
}

// Connect opens the serial channel on port, or on the configured port when
// port is empty, and starts polling
func (ps *PyrometerService) Connect(ctx context.Context, port string) error {
	if port == "" {
		port = ps.config.Device.Port
	}
	if port == "" {
		return ErrPortRequired
	}

	return ps.gate.Do(ctx, func(ctx context.Context) error {
		if ps.session.IsConnected() {
			if current := ps.session.Port(); current != port {
				return fmt.Errorf("%w on %s", ErrAlreadyConnected, current)
			}
			return nil
		}

		if err := ps.session.Connect(ctx, port); err != nil {
			ps.logger.Error("Failed to connect pyrometer",
				zap.String("port", port),
				zap.Error(err),
			)
			return err
		}

		ps.prepareDevice(ctx)

		coordinator := poller.NewCoordinator(
			ps.config.Device.PollingInterval,
			ps.session.GetTargetTemperature,
			&samplePublisher{service: ps},
			ps.logger.Logger,
		)
		if err := coordinator.Start(); err != nil {
			return fmt.Errorf("failed to start polling: %w", err)
		}

		ps.mu.Lock()
		ps.coordinator = coordinator
		ps.mu.Unlock()
		ps.gate.Attach(coordinator)

		ps.logger.Info("Pyrometer connected",
			zap.String("port", port),
			zap.Duration("polling_interval", ps.config.Device.PollingInterval),
		)
		return nil
	})
}

// prepareDevice reads the emissivity and, when configured, switches the laser
// off after connect
func (ps *PyrometerService) prepareDevice(ctx context.Context) {
	if emissivity, err := ps.session.GetEmissivity(ctx); err != nil {
		ps.logger.Warn("Failed to read emissivity after connect", zap.Error(err))
	} else {
		ps.logger.Info("Current emissivity", zap.Float64("emissivity", emissivity))
	}

	if !ps.config.Device.LaserOffOnConnect {
		return
	}
	if err := ps.session.SetLaser(ctx, false); err != nil {
		ps.logger.Warn("Failed to switch laser off after connect", zap.Error(err))
	}
}

// Disconnect stops polling and closes the serial channel. No sample is taken
// once it returns.
func (ps *PyrometerService) Disconnect(ctx context.Context) error {
	return ps.gate.Do(ctx, func(ctx context.Context) error {
		ps.gate.Detach()

		ps.mu.Lock()
		coordinator := ps.coordinator
		ps.coordinator = nil
		ps.mu.Unlock()

		if coordinator != nil {
			coordinator.Stop()
		}

		if err := ps.session.Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to disconnect: %w", err)
		}

		ps.logger.Info("Pyrometer disconnected")
		return nil
	})
}

// IsConnected returns whether the device session is open
func (ps *PyrometerService) IsConnected() bool {
	return ps.session.IsConnected()
}

// IssueCommand runs one foreground command with polling paused and journals
// the outcome
func (ps *PyrometerService) IssueCommand(ctx context.Context, kind model.CommandKind, payload model.JSONObject) (*CommandResult, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, kind)
	}

	args, err := parseCommandPayload(kind, payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	operation := &model.DeviceOperation{
		ID:        uuid.New(),
		DeviceID:  ps.deviceID,
		Kind:      kind,
		Payload:   payload,
		Status:    model.OperationStatusProcessing,
		StartedAt: now,
		CreatedAt: now,
	}

	if err := ps.operationRepo.Create(ctx, operation); err != nil {
		ps.logger.Error("Failed to journal operation", zap.Error(err))
	}

	opLogger := utils.NewOperationLogger(ps.logger.Logger, string(kind), operation.ID.String())
	opLogger.Start(zap.String("device_id", ps.deviceID), zap.Any("payload", payload))

	execCtx, cancel := context.WithTimeout(ctx, ps.operationTimeout())
	defer cancel()

	var result model.JSONObject
	err = ps.gate.Do(execCtx, func(ctx context.Context) error {
		var execErr error
		result, execErr = ps.execute(ctx, kind, args)
		return execErr
	})

	status := model.OperationStatusSuccess
	if err != nil {
		status = model.OperationStatusFailed
		if errors.Is(err, optris.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			status = model.OperationStatusTimeout
		}
	}
	operation.Complete(status, result, err)

	// Journal the outcome even when the caller has gone away
	if updateErr := ps.operationRepo.Update(context.WithoutCancel(ctx), operation); updateErr != nil {
		ps.logger.Error("Failed to update operation", zap.Error(updateErr))
	}

	ps.publishOperation(operation)

	if err != nil {
		opLogger.Error(err, zap.String("status", string(status)))
		if kind.IsWrite() && status == model.OperationStatusTimeout {
			ps.logger.Warn("Write command unconfirmed, device state unknown",
				zap.String("kind", string(kind)),
				zap.String("operation_id", operation.ID.String()),
			)
		}
		return nil, fmt.Errorf("%s failed: %w", kind, err)
	}

	opLogger.Success(zap.Any("result", result))
	return &CommandResult{
		OperationID: operation.ID,
		Kind:        kind,
		Result:      result,
		DurationMs:  *operation.DurationMs,
	}, nil
}

// execute performs a command against the session, caller holds the gate
func (ps *PyrometerService) execute(ctx context.Context, kind model.CommandKind, args commandArgs) (model.JSONObject, error) {
	switch kind {
	case model.CommandSerialNumber:
		serial, err := ps.session.GetSerialNumber(ctx)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"serial_number": serial}, nil

	case model.CommandTargetTemperature:
		return celsiusResult(ps.session.GetTargetTemperature(ctx))

	case model.CommandHeadTemperature:
		return celsiusResult(ps.session.GetHeadTemperature(ctx))

	case model.CommandCurrentTargetTemperature:
		return celsiusResult(ps.session.GetCurrentTargetTemperature(ctx))

	case model.CommandGetEmissivity:
		emissivity, err := ps.session.GetEmissivity(ctx)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"emissivity": emissivity}, nil

	case model.CommandSetEmissivity:
		if err := ps.session.SetEmissivity(ctx, args.emissivity); err != nil {
			return nil, err
		}
		return model.JSONObject{"emissivity": args.emissivity}, nil

	case model.CommandGetLaser:
		on, err := ps.session.GetLaser(ctx)
		if err != nil {
			return nil, err
		}
		return model.JSONObject{"on": on}, nil

	case model.CommandSetLaser:
		if err := ps.session.SetLaser(ctx, args.laserOn); err != nil {
			return nil, err
		}
		return model.JSONObject{"on": args.laserOn}, nil

	case model.CommandToggleLaser:
		on, err := ps.session.GetLaser(ctx)
		if err != nil {
			return nil, err
		}
		if err := ps.session.SetLaser(ctx, !on); err != nil {
			return nil, err
		}
		return model.JSONObject{"on": !on}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, kind)
}

func celsiusResult(celsius float64, err error) (model.JSONObject, error) {
	if err != nil {
		return nil, err
	}
	return model.JSONObject{"celsius": celsius}, nil
}

func (ps *PyrometerService) operationTimeout() time.Duration {
	if ps.config.Device.OperationTimeout > 0 {
		return ps.config.Device.OperationTimeout
	}
	return 10 * time.Second
}

func (ps *PyrometerService) publishOperation(operation *model.DeviceOperation) {
	event := model.DeviceEvent{
		EventType: model.EventOperationCompleted,
		DeviceID:  ps.deviceID,
		Data: model.JSONObject{
			"operation_id": operation.ID.String(),
			"kind":         string(operation.Kind),
			"status":       string(operation.Status),
			"result":       operation.Result,
			"write":        operation.Kind.IsWrite(),
		},
		Source:   "command",
		Severity: "INFO",
	}
	if operation.ErrorMessage != nil {
		event.EventType = model.EventOperationFailed
		event.Data["error"] = *operation.ErrorMessage
		event.Severity = "ERROR"
	}
	ps.eventBus.Publish(event)
}

// OnTemperatureSample registers fn to be called with every successful sample
func (ps *PyrometerService) OnTemperatureSample(fn func(celsius float64, ts time.Time)) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.callbacks = append(ps.callbacks, fn)
}

// LastReading returns the last good sample and whether one has been taken
func (ps *PyrometerService) LastReading() (model.TemperatureReading, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.lastReading, !ps.lastReading.IsZero()
}

// Status returns a snapshot of the session and the poller
func (ps *PyrometerService) Status() *DeviceStatusResponse {
	response := &DeviceStatusResponse{
		DeviceID:    ps.deviceID,
		Port:        ps.session.Port(),
		Connected:   ps.session.IsConnected(),
		Status:      ps.session.GetStatus(),
		DeviceInfo:  ps.session.GetDeviceInfo(),
		Health:      ps.session.GetHealthMetrics(),
		PollerState: poller.StateStopped,
	}

	ps.mu.RLock()
	if ps.coordinator != nil {
		stats := ps.coordinator.Stats()
		response.PollerState = ps.coordinator.State()
		response.PollerStats = &stats
	}
	if !ps.lastReading.IsZero() {
		reading := ps.lastReading
		response.LastReading = &reading
	}
	if ps.lastSampleErr != nil {
		response.LastSampleError = ps.lastSampleErr.Error()
	}
	ps.mu.RUnlock()

	if source, ok := ps.session.(transportStatsSource); ok {
		if stats, open := source.GetTransportStats(); open {
			response.Transport = &stats
		}
	}
	return response
}

// Close disconnects the device
func (ps *PyrometerService) Close() error {
	return ps.Disconnect(context.Background())
}

type transportStatsSource interface {
	GetTransportStats() (protocol.ProtocolStats, bool)
}

// samplePublisher receives poller ticks on behalf of the service
type samplePublisher struct {
	service *PyrometerService
}

func (p *samplePublisher) OnTemperatureSample(reading model.TemperatureReading) {
	ps := p.service

	ps.mu.Lock()
	ps.lastReading = reading
	ps.lastSampleErr = nil
	callbacks := append(([]func(float64, time.Time))(nil), ps.callbacks...)
	ps.mu.Unlock()

	ps.eventBus.Publish(model.NewSampleEvent(ps.deviceID, reading))
	for _, fn := range callbacks {
		fn(reading.Celsius, reading.Timestamp)
	}
}

func (p *samplePublisher) OnSampleError(err error) {
	ps := p.service

	ps.mu.Lock()
	ps.lastSampleErr = err
	ps.mu.Unlock()

	ps.eventBus.Publish(model.DeviceEvent{
		EventType: model.EventDiagnostic,
		DeviceID:  ps.deviceID,
		Data: model.JSONObject{
			"message": "temperature sample failed",
			"error":   err.Error(),
		},
		Source:   "poller",
		Severity: "WARNING",
	})
}

// commandArgs carries the validated payload of a command
type commandArgs struct {
	emissivity float64
	laserOn    bool
}

func parseCommandPayload(kind model.CommandKind, payload model.JSONObject) (commandArgs, error) {
	var args commandArgs

	switch kind {
	case model.CommandSetEmissivity:
		value, ok := numberField(payload, "value")
		if !ok {
			return args, fmt.Errorf("%w: %s requires a numeric \"value\"", ErrInvalidPayload, kind)
		}
		if _, err := optris.EmissivityRaw(value); err != nil {
			return args, err
		}
		args.emissivity = value

	case model.CommandSetLaser:
		on, ok := payload["on"].(bool)
		if !ok {
			return args, fmt.Errorf("%w: %s requires a boolean \"on\"", ErrInvalidPayload, kind)
		}
		args.laserOn = on
	}

	return args, nil
}

func numberField(payload model.JSONObject, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// DTOs for Pyrometer Service

// CommandResult represents a completed foreground command
type CommandResult struct {
	OperationID uuid.UUID         `json:"operation_id"`
	Kind        model.CommandKind `json:"kind"`
	Result      model.JSONObject  `json:"result"`
	DurationMs  int               `json:"duration_ms"`
}

// DeviceStatusResponse represents the device status snapshot
type DeviceStatusResponse struct {
	DeviceID        string                    `json:"device_id"`
	Port            string                    `json:"port,omitempty"`
	Connected       bool                      `json:"connected"`
	Status          *driver.DeviceStatus      `json:"status"`
	DeviceInfo      *driver.DeviceInfo        `json:"device_info"`
	Health          *driver.HealthMetrics     `json:"health"`
	PollerState     poller.State              `json:"poller_state"`
	PollerStats     *poller.Stats             `json:"poller_stats,omitempty"`
	LastReading     *model.TemperatureReading `json:"last_reading,omitempty"`
	LastSampleError string                    `json:"last_sample_error,omitempty"`
	Transport       *protocol.ProtocolStats   `json:"transport,omitempty"`
}
