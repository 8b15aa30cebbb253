// internal/driver/registry_init.go
package driver

import (
	"go.uber.org/zap"

	"pyrometer-service/internal/driver/optris"
	"pyrometer-service/pkg/driver"
)

// optrisModels share the CS Laser binary protocol
var optrisModels = []string{
	"CS Laser",
	"CSlaser LT",
	"CSlaser 2M",
	"CSlaser G5",
	"CSlaser hs",
}

// RegisterDefaultDrivers registers all default device drivers
func RegisterDefaultDrivers(registry *Registry, logger *zap.Logger) {
	for _, model := range optrisModels {
		registry.Register(model, newOptrisDriver)
	}

	logger.Info("Optris pyrometer drivers registered",
		zap.Int("models", len(optrisModels)),
	)
}

func newOptrisDriver(config Config, logger *zap.Logger) driver.PyrometerDriver {
	sessionConfig := optris.DefaultConfig(config.DeviceID)
	sessionConfig.Model = config.Model
	sessionConfig.FlushOnShortRead = config.FlushOnShortRead
	if config.Serial != nil {
		sessionConfig.Serial = config.Serial
	}
	return optris.NewSession(sessionConfig, logger)
}
