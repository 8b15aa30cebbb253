// pkg/driver/interfaces.go
package driver

import (
	"context"

	"pyrometer-service/internal/model"
)

// PyrometerDriver is implemented by infrared thermometer sessions. Every
// accessor performs exactly one request/response exchange and fails without
// touching the line while disconnected.
type PyrometerDriver interface {
	// Connection management
	Connect(ctx context.Context, port string) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Port() string

	// Measurements
	GetSerialNumber(ctx context.Context) (uint32, error)
	GetTargetTemperature(ctx context.Context) (float64, error)
	GetHeadTemperature(ctx context.Context) (float64, error)
	GetCurrentTargetTemperature(ctx context.Context) (float64, error)

	// Configuration
	GetEmissivity(ctx context.Context) (float64, error)
	SetEmissivity(ctx context.Context, value float64) error
	GetLaser(ctx context.Context) (bool, error)
	SetLaser(ctx context.Context, on bool) error

	// Device information
	GetDeviceInfo() *DeviceInfo
	GetCapabilities() []model.Capability
	GetStatus() *DeviceStatus
	GetHealthMetrics() *HealthMetrics

	// Event handling
	SetEventHandler(handler EventHandler)

	// Cleanup
	Close() error
}
