// internal/driver/optris/codec.go
package optris

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// temperatureOffset is added by the device before transmitting tenths of a degree
const temperatureOffset = 1000

// CommandFrame is one request sent to the device
type CommandFrame struct {
	Op      Operation
	Payload []byte
}

// Bytes returns the wire form: opcode followed by the payload
func (f CommandFrame) Bytes() []byte {
	out := make([]byte, 0, 1+len(f.Payload))
	out = append(out, f.Op.Opcode())
	return append(out, f.Payload...)
}

// ResponseLen returns the fixed length of the device answer to f
func (f CommandFrame) ResponseLen() int {
	return f.Op.ResponseLen()
}

// EncodeRead builds the frame for a read operation
func EncodeRead(op Operation) (CommandFrame, error) {
	l, ok := layouts[op]
	if !ok {
		return CommandFrame{}, fmt.Errorf("%w: %d", ErrUnknownOperation, int(op))
	}
	if l.payloadLen != 0 {
		return CommandFrame{}, fmt.Errorf("%s requires a payload", op)
	}
	return CommandFrame{Op: op}, nil
}

// EmissivityRaw converts an emissivity to the device's thousandths
func EmissivityRaw(value float64) (uint16, error) {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEmissivity, value)
	}
	return uint16(decimal.NewFromFloat(value).Shift(3).Round(0).IntPart()), nil
}

// EncodeSetEmissivity builds the emissivity write frame, e.g. 0.95 -> 84 03 B6
func EncodeSetEmissivity(value float64) (CommandFrame, error) {
	raw, err := EmissivityRaw(value)
	if err != nil {
		return CommandFrame{}, err
	}
	return CommandFrame{Op: OpWriteEmissivity, Payload: []byte{byte(raw >> 8), byte(raw)}}, nil
}

// EncodeSetLaser builds the laser write frame
func EncodeSetLaser(on bool) CommandFrame {
	return CommandFrame{Op: OpWriteLaser, Payload: []byte{laserByte(on)}}
}

func laserByte(on bool) byte {
	if on {
		return 0x01
	}
	return 0x00
}

// checkLength rejects any response that is not exactly the expected size
func checkLength(op Operation, resp []byte) error {
	if want := op.ResponseLen(); len(resp) != want {
		return &DecodeError{Op: op, Expected: want, Got: len(resp)}
	}
	return nil
}

// DecodeSerialNumber decodes the three byte serial number
func DecodeSerialNumber(resp []byte) (uint32, error) {
	if err := checkLength(OpSerialNumber, resp); err != nil {
		return 0, err
	}
	return uint32(resp[0])<<16 | uint32(resp[1])<<8 | uint32(resp[2]), nil
}

// DecodeTemperature decodes a target, head or current target temperature in °C
func DecodeTemperature(op Operation, resp []byte) (float64, error) {
	switch op {
	case OpTargetTemperature, OpHeadTemperature, OpCurrentTargetTemperature:
	default:
		return 0, fmt.Errorf("%s is not a temperature operation", op)
	}
	if err := checkLength(op, resp); err != nil {
		return 0, err
	}
	raw := int(resp[0])<<8 | int(resp[1])
	return float64(raw-temperatureOffset) / 10.0, nil
}

// DecodeEmissivity decodes the emissivity register
func DecodeEmissivity(resp []byte) (float64, error) {
	if err := checkLength(OpReadEmissivity, resp); err != nil {
		return 0, err
	}
	raw := int64(resp[0])<<8 | int64(resp[1])
	value, _ := decimal.New(raw, -3).Float64()
	return value, nil
}

// DecodeLaser decodes the laser state; only 0x01 means on
func DecodeLaser(resp []byte) (bool, error) {
	if err := checkLength(OpReadLaser, resp); err != nil {
		return false, err
	}
	return resp[0] == 0x01, nil
}

// VerifyEcho checks the device answer to a write frame
func VerifyEcho(frame CommandFrame, resp []byte) error {
	switch frame.Op {
	case OpWriteEmissivity, OpWriteLaser:
	default:
		return fmt.Errorf("%s is not a write operation", frame.Op)
	}
	if err := checkLength(frame.Op, resp); err != nil {
		return err
	}
	if len(frame.Payload) != len(resp) {
		return fmt.Errorf("%s: malformed frame payload", frame.Op)
	}
	want, got := 0, 0
	for i := range resp {
		want = want<<8 | int(frame.Payload[i])
		got = got<<8 | int(resp[i])
	}
	if want != got {
		return &AckMismatchError{Op: frame.Op, Want: want, Got: got}
	}
	return nil
}
