// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pyrometer-service/internal/discovery"
	"pyrometer-service/internal/discovery/serial"
	"pyrometer-service/internal/utils"
)

// DiscoveryService lists the serial ports a pyrometer can be connected to
type DiscoveryService struct {
	scannerManager *discovery.ScannerManager
	logger         *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service with the given scanners, or
// the host serial scanner when none are given
func NewDiscoveryService(logger *zap.Logger, scanners ...discovery.PortScanner) *DiscoveryService {
	ds := &DiscoveryService{
		scannerManager: discovery.NewScannerManager(logger),
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
	}

	if len(scanners) == 0 {
		scanners = []discovery.PortScanner{serial.NewScanner(logger, nil)}
	}
	for _, scanner := range scanners {
		if scanner.IsAvailable() {
			ds.scannerManager.RegisterScanner(scanner)
		}
	}

	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", ds.scannerManager.GetAvailableScanners()),
	)
	return ds
}

// ListPorts returns the ports found by the scanners of scanType, or by all
// scanners when scanType is empty or "all"
func (ds *DiscoveryService) ListPorts(ctx context.Context, scanType string) ([]*discovery.DiscoveredPort, error) {
	var (
		ports []*discovery.DiscoveredPort
		err   error
	)

	switch scanType {
	case "", "all":
		ports, err = ds.scannerManager.ScanAll(ctx)
	default:
		ports, err = ds.scannerManager.ScanByType(ctx, scanType)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	ds.logger.Info("Port scan completed",
		zap.Int("ports_found", len(ports)),
		zap.String("scan_type", scanType),
	)
	return ports, nil
}

// GetAvailableScanners returns the registered scanner types
func (ds *DiscoveryService) GetAvailableScanners() []string {
	return ds.scannerManager.GetAvailableScanners()
}
