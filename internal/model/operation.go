// internal/model/operation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// CommandKind names a foreground command issued against the pyrometer
type CommandKind string

const (
	CommandSerialNumber             CommandKind = "serial_number"
	CommandTargetTemperature        CommandKind = "target_temperature"
	CommandHeadTemperature          CommandKind = "head_temperature"
	CommandCurrentTargetTemperature CommandKind = "current_target_temperature"
	CommandGetEmissivity            CommandKind = "get_emissivity"
	CommandSetEmissivity            CommandKind = "set_emissivity"
	CommandGetLaser                 CommandKind = "get_laser"
	CommandSetLaser                 CommandKind = "set_laser"
	CommandToggleLaser              CommandKind = "toggle_laser"
)

// CommandKinds lists every supported command
var CommandKinds = []CommandKind{
	CommandSerialNumber,
	CommandTargetTemperature,
	CommandHeadTemperature,
	CommandCurrentTargetTemperature,
	CommandGetEmissivity,
	CommandSetEmissivity,
	CommandGetLaser,
	CommandSetLaser,
	CommandToggleLaser,
}

// IsValid reports whether k is a known command
func (k CommandKind) IsValid() bool {
	for _, known := range CommandKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsWrite reports whether the command changes device state
func (k CommandKind) IsWrite() bool {
	return k == CommandSetEmissivity || k == CommandSetLaser || k == CommandToggleLaser
}

// OperationStatus represents the status of an operation
type OperationStatus string

const (
	OperationStatusProcessing OperationStatus = "PROCESSING"
	OperationStatusSuccess    OperationStatus = "SUCCESS"
	OperationStatusFailed     OperationStatus = "FAILED"
	OperationStatusTimeout    OperationStatus = "TIMEOUT"
)

// DeviceOperation is one journaled foreground command
type DeviceOperation struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	DeviceID     string          `json:"device_id" db:"device_id"`
	Kind         CommandKind     `json:"kind" db:"kind"`
	Payload      JSONObject      `json:"payload" db:"payload"`
	Status       OperationStatus `json:"status" db:"status"`
	StartedAt    time.Time       `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at" db:"completed_at"`
	DurationMs   *int            `json:"duration_ms" db:"duration_ms"`
	ErrorMessage *string         `json:"error_message" db:"error_message"`
	Result       JSONObject      `json:"result" db:"result"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// IsCompleted checks if operation is completed (success or failed)
func (op *DeviceOperation) IsCompleted() bool {
	return op.Status == OperationStatusSuccess ||
		op.Status == OperationStatusFailed ||
		op.Status == OperationStatusTimeout
}

// Complete marks the operation finished with either a result or an error
func (op *DeviceOperation) Complete(status OperationStatus, result JSONObject, err error) {
	completedAt := time.Now()
	durationMs := int(completedAt.Sub(op.StartedAt).Milliseconds())

	op.Status = status
	op.CompletedAt = &completedAt
	op.DurationMs = &durationMs
	op.Result = result
	if err != nil {
		msg := err.Error()
		op.ErrorMessage = &msg
	}
}
