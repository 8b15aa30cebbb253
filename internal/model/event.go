// internal/model/event.go
package model

import (
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventTemperatureSample  EventType = "TEMPERATURE_SAMPLE"
	EventDiagnostic         EventType = "DIAGNOSTIC"
	EventDeviceConnected    EventType = "DEVICE_CONNECTED"
	EventDeviceDisconnected EventType = "DEVICE_DISCONNECTED"
	EventDeviceError        EventType = "DEVICE_ERROR"
	EventOperationCompleted EventType = "OPERATION_COMPLETED"
	EventOperationFailed    EventType = "OPERATION_FAILED"
)

// DeviceEvent represents an event in the system
type DeviceEvent struct {
	EventType EventType  `json:"event_type"`
	DeviceID  string     `json:"device_id,omitempty"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"` // INFO, WARNING, ERROR
}

// NewSampleEvent wraps a reading as a bus event
func NewSampleEvent(deviceID string, reading TemperatureReading) DeviceEvent {
	return DeviceEvent{
		EventType: EventTemperatureSample,
		DeviceID:  deviceID,
		Data: JSONObject{
			"celsius":   reading.Celsius,
			"timestamp": reading.Timestamp,
		},
		Timestamp: reading.Timestamp,
		Source:    "poller",
		Severity:  "INFO",
	}
}
