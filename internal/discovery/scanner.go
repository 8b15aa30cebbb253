// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"pyrometer-service/internal/model"
)

// PortScanner lists serial channels a pyrometer could be attached to
type PortScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredPort, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredPort represents a serial port found on the host
type DiscoveredPort struct {
	Name           string               `json:"name"`
	ConnectionType model.ConnectionType `json:"connection_type"`
	IsUSB          bool                 `json:"is_usb"`
	VendorID       string               `json:"vendor_id,omitempty"`
	ProductID      string               `json:"product_id,omitempty"`
	SerialNumber   string               `json:"serial_number,omitempty"`
	Product        string               `json:"product,omitempty"`
	Adapter        string               `json:"adapter,omitempty"`
}

// ScannerManager manages all port scanners
type ScannerManager struct {
	scanners map[string]PortScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]PortScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a port scanner
func (sm *ScannerManager) RegisterScanner(scanner PortScanner) {
	scannerType := scanner.GetScannerType()
	sm.scanners[scannerType] = scanner
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner. A failing scanner is logged and
// skipped; ports are returned sorted by name.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredPort, error) {
	allPorts := []*DiscoveredPort{}

	for scannerType, scanner := range sm.scanners {
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		ports, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		allPorts = append(allPorts, ports...)
		sm.logger.Debug("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("ports_found", len(ports)),
		)
	}

	sort.Slice(allPorts, func(i, j int) bool { return allPorts[i].Name < allPorts[j].Name })
	return allPorts, nil
}

// ScanByType scans with one scanner type
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredPort, error) {
	scanner, exists := sm.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}

	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	return scanner.Scan(ctx)
}

// GetAvailableScanners returns list of available scanner types
func (sm *ScannerManager) GetAvailableScanners() []string {
	available := []string{}
	for scannerType, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, scannerType)
		}
	}
	sort.Strings(available)
	return available
}
