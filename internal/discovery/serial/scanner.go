// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"pyrometer-service/internal/discovery"
	"pyrometer-service/internal/model"
)

// PortLister returns the serial ports of the host
type PortLister func() ([]*enumerator.PortDetails, error)

// Scanner implements serial port discovery
type Scanner struct {
	logger   *zap.Logger
	list     PortLister
	adapters *AdapterDatabase
}

// NewScanner creates a serial scanner. A nil lister uses the OS enumerator.
func NewScanner(logger *zap.Logger, list PortLister) *Scanner {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	return &Scanner{
		logger:   logger.With(zap.String("scanner", "serial")),
		list:     list,
		adapters: NewAdapterDatabase(),
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists the serial ports without opening them
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	ports := make([]*discovery.DiscoveredPort, 0, len(details))
	for _, d := range details {
		port := &discovery.DiscoveredPort{
			Name:           d.Name,
			ConnectionType: model.ConnectionTypeSerial,
			IsUSB:          d.IsUSB,
		}
		if d.IsUSB {
			port.VendorID = d.VID
			port.ProductID = d.PID
			port.SerialNumber = d.SerialNumber
			port.Product = d.Product
			port.Adapter = s.adapters.Describe(d.VID, d.PID)
		}
		ports = append(ports, port)
	}

	s.logger.Debug("Serial scan completed", zap.Int("ports_found", len(ports)))
	return ports, nil
}
