// internal/driver/registry.go
package driver

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pyrometer-service/internal/protocol"
	"pyrometer-service/pkg/driver"
)

// WildcardModel matches any model without a dedicated registration
const WildcardModel = "*"

// Config carries what a factory needs to build a session
type Config struct {
	DeviceID         string
	Model            string
	Serial           *protocol.SerialConfig
	FlushOnShortRead bool
}

// DriverFactory creates pyrometer drivers
type DriverFactory func(config Config, logger *zap.Logger) driver.PyrometerDriver

// Registry maps device models to driver factories
type Registry struct {
	drivers map[string]DriverFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates a new driver registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		drivers: make(map[string]DriverFactory),
		logger:  logger,
	}
}

func modelKey(model string) string {
	return strings.ToLower(strings.Join(strings.Fields(model), " "))
}

// Register registers a driver factory for a model. Model names are matched
// case-insensitively.
func (r *Registry) Register(model string, factory DriverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[modelKey(model)] = factory
	r.logger.Debug("Driver registered", zap.String("model", model))
}

func (r *Registry) lookup(model string) (DriverFactory, bool) {
	if factory, exists := r.drivers[modelKey(model)]; exists {
		return factory, true
	}
	factory, exists := r.drivers[WildcardModel]
	return factory, exists
}

// CreateDriver creates a driver for config.Model, falling back to the
// wildcard registration
func (r *Registry) CreateDriver(config Config) (driver.PyrometerDriver, error) {
	r.mu.RLock()
	factory, exists := r.lookup(config.Model)
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no driver found for model %q", config.Model)
	}
	return factory(config, r.logger), nil
}

// IsSupported checks if a model has a driver
func (r *Registry) IsSupported(model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.lookup(model)
	return exists
}

// ListModels returns the registered model keys in order
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.drivers))
	for model := range r.drivers {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
