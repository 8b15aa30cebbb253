// internal/model/device.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DeviceStatus represents the connection state of the pyrometer session
type DeviceStatus string

const (
	DeviceStatusOnline     DeviceStatus = "ONLINE"
	DeviceStatusOffline    DeviceStatus = "OFFLINE"
	DeviceStatusConnecting DeviceStatus = "CONNECTING"
	DeviceStatusError      DeviceStatus = "ERROR"
)

// ConnectionType represents how the device is connected
type ConnectionType string

const (
	ConnectionTypeSerial ConnectionType = "SERIAL"
)

// Capability represents what a device can do
type Capability string

const (
	CapabilityTargetTemperature Capability = "TARGET_TEMPERATURE"
	CapabilityHeadTemperature   Capability = "HEAD_TEMPERATURE"
	CapabilityEmissivity        Capability = "EMISSIVITY"
	CapabilityLaser             Capability = "LASER"
	CapabilitySerialNumber      Capability = "SERIAL_NUMBER"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONObject source type %T", value)
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}
