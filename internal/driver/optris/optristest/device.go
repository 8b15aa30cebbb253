// Package optristest provides an in-memory CS Laser for tests. It answers the
// binary protocol like the real head and records how the line was used.
package optristest

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
	"pyrometer-service/internal/protocol"
)

// Device simulates a CS Laser on the far end of a serial line
type Device struct {
	mu sync.Mutex

	// Registers
	SerialNumber  uint32
	Target        float64
	Head          float64
	CurrentTarget float64
	Emissivity    uint16
	Laser         bool

	// OpenErr makes Open fail
	OpenErr error
	// CloseErr makes Close fail once the port is open
	CloseErr error
	// ReadDelay stretches every read, widening race windows
	ReadDelay time.Duration
	// ReadErr fails the next read and leaves the reply pending
	ReadErr error

	open       bool
	port       string
	pending    []byte
	truncate   []int
	badEcho    int
	written    [][]byte
	flushCount int

	active       atomic.Int32
	overlaps     atomic.Int32
	interleaves  atomic.Int32
	awaitingRead atomic.Bool
	writes       atomic.Int64
	reads        atomic.Int64
}

// NewDevice returns a device with plausible register contents
func NewDevice() *Device {
	return &Device{
		SerialNumber:  65536,
		Target:        23.5,
		Head:          25.0,
		CurrentTarget: 23.5,
		Emissivity:    950,
	}
}

// Factory returns a protocol.Factory that hands out this device
func (d *Device) Factory() protocol.Factory {
	return func(config *protocol.SerialConfig, logger *zap.Logger) protocol.DeviceProtocol {
		d.mu.Lock()
		d.port = config.Port
		d.mu.Unlock()
		return d
	}
}

// Truncate makes the next len(keep) responses carry only keep[i] bytes
func (d *Device) Truncate(keep ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.truncate = append(d.truncate, keep...)
}

// CorruptNextEcho makes the next write echo differ from the written value
func (d *Device) CorruptNextEcho() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.badEcho++
}

// SetTarget updates the target temperature register
func (d *Device) SetTarget(celsius float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Target = celsius
}

// LaserOn reports the laser register
func (d *Device) LaserOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Laser
}

// EmissivityRaw reports the emissivity register in thousandths
func (d *Device) EmissivityRaw() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Emissivity
}

// Written returns a copy of every frame received
func (d *Device) Written() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.written))
	copy(out, d.written)
	return out
}

// Port returns the port name the device was opened with
func (d *Device) Port() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// Flushes returns how often unread input was discarded
func (d *Device) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushCount
}

// Writes returns the number of Write calls
func (d *Device) Writes() int64 { return d.writes.Load() }

// Reads returns the number of Read calls
func (d *Device) Reads() int64 { return d.reads.Load() }

// Overlaps counts transport calls that started while another was running
func (d *Device) Overlaps() int32 { return d.overlaps.Load() }

// Interleaves counts writes issued before the previous response was read
func (d *Device) Interleaves() int32 { return d.interleaves.Load() }

func (d *Device) enter() {
	if d.active.Inc() > 1 {
		d.overlaps.Inc()
	}
}

func (d *Device) leave() {
	d.active.Dec()
}

// Open implements protocol.DeviceProtocol
func (d *Device) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return d.OpenErr
	}
	d.open = true
	d.pending = nil
	return nil
}

// Close implements protocol.DeviceProtocol
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	d.open = false
	return d.CloseErr
}

// IsOpen implements protocol.DeviceProtocol
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Write implements protocol.DeviceProtocol
func (d *Device) Write(ctx context.Context, data []byte) error {
	d.enter()
	defer d.leave()
	d.writes.Inc()
	if d.awaitingRead.Swap(true) {
		d.interleaves.Inc()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return protocol.ErrPortNotOpen
	}
	d.written = append(d.written, append([]byte(nil), data...))
	if len(data) == 0 {
		return nil
	}

	resp := d.respond(data)
	if len(d.truncate) > 0 {
		keep := d.truncate[0]
		d.truncate = d.truncate[1:]
		if keep < len(resp) {
			resp = resp[:keep]
		}
	}
	d.pending = append(d.pending, resp...)
	return nil
}

// respond applies a frame to the registers and returns the device answer
func (d *Device) respond(frame []byte) []byte {
	switch frame[0] {
	case 0x0E:
		return []byte{byte(d.SerialNumber >> 16), byte(d.SerialNumber >> 8), byte(d.SerialNumber)}
	case 0x01:
		return encodeTemperature(d.Target)
	case 0x02:
		return encodeTemperature(d.Head)
	case 0x03:
		return encodeTemperature(d.CurrentTarget)
	case 0x04:
		return []byte{byte(d.Emissivity >> 8), byte(d.Emissivity)}
	case 0x84:
		if len(frame) != 3 {
			return nil
		}
		value := uint16(frame[1])<<8 | uint16(frame[2])
		d.Emissivity = value
		if d.badEcho > 0 {
			d.badEcho--
			value--
		}
		return []byte{byte(value >> 8), byte(value)}
	case 0x10:
		if d.Laser {
			return []byte{0x01}
		}
		return []byte{0x00}
	case 0x90:
		if len(frame) != 2 {
			return nil
		}
		d.Laser = frame[1] == 0x01
		echo := frame[1]
		if d.badEcho > 0 {
			d.badEcho--
			echo ^= 0x01
		}
		return []byte{echo}
	}
	return nil
}

func encodeTemperature(celsius float64) []byte {
	raw := int(math.Round(celsius*10)) + 1000
	return []byte{byte(raw >> 8), byte(raw)}
}

// Read implements protocol.DeviceProtocol
func (d *Device) Read(ctx context.Context, n int) ([]byte, error) {
	d.enter()
	defer d.leave()
	d.reads.Inc()
	d.awaitingRead.Store(false)

	if d.ReadDelay > 0 {
		select {
		case <-time.After(d.ReadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, protocol.ErrPortNotOpen
	}
	if err := d.ReadErr; err != nil {
		d.ReadErr = nil
		return nil, err
	}
	if n > len(d.pending) {
		n = len(d.pending)
	}
	out := append([]byte(nil), d.pending[:n]...)
	d.pending = d.pending[n:]
	return out, nil
}

// Flush implements protocol.DeviceProtocol
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return protocol.ErrPortNotOpen
	}
	d.pending = nil
	d.flushCount++
	return nil
}

// GetProtocolType implements protocol.DeviceProtocol
func (d *Device) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// GetStats implements protocol.DeviceProtocol
func (d *Device) GetStats() protocol.ProtocolStats {
	return protocol.ProtocolStats{
		OperationCount: d.writes.Load() + d.reads.Load(),
		IsConnected:    d.IsOpen(),
	}
}

// ErrUnplugged is a convenient OpenErr for tests
var ErrUnplugged = errors.New("device unplugged")
