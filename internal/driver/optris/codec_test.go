package optris

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRead(t *testing.T) {
	tests := []struct {
		op       Operation
		wire     []byte
		response int
	}{
		{OpSerialNumber, []byte{0x0E}, 3},
		{OpTargetTemperature, []byte{0x01}, 2},
		{OpHeadTemperature, []byte{0x02}, 2},
		{OpCurrentTargetTemperature, []byte{0x03}, 2},
		{OpReadEmissivity, []byte{0x04}, 2},
		{OpReadLaser, []byte{0x10}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			frame, err := EncodeRead(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.wire, frame.Bytes())
			assert.Equal(t, tt.response, frame.ResponseLen())
		})
	}
}

func TestEncodeReadRejectsWrites(t *testing.T) {
	_, err := EncodeRead(OpWriteLaser)
	assert.Error(t, err)

	_, err = EncodeRead(Operation(99))
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestEncodeSetEmissivity(t *testing.T) {
	frame, err := EncodeSetEmissivity(0.95)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x84, 0x03, 0xB6}, frame.Bytes())
	assert.Equal(t, 2, frame.ResponseLen())

	assert.NoError(t, VerifyEcho(frame, []byte{0x03, 0xB6}))

	err = VerifyEcho(frame, []byte{0x03, 0xB5})
	assert.ErrorIs(t, err, ErrAckMismatch)
	var mismatch *AckMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 950, mismatch.Want)
	assert.Equal(t, 949, mismatch.Got)
}

func TestEmissivityRoundTripsEveryStep(t *testing.T) {
	for raw := 0; raw <= 1000; raw++ {
		value := float64(raw) / 1000.0

		frame, err := EncodeSetEmissivity(value)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(raw >> 8), byte(raw)}, frame.Payload, "value %v", value)
		require.NoError(t, VerifyEcho(frame, frame.Payload))

		decoded, err := DecodeEmissivity(frame.Payload)
		require.NoError(t, err)
		assert.Equal(t, value, decoded)
	}
}

func TestEmissivityRaw(t *testing.T) {
	tests := []struct {
		value float64
		raw   uint16
		err   bool
	}{
		{0, 0, false},
		{1, 1000, false},
		{0.95, 950, false},
		{0.9999, 1000, false},
		{0.1234, 123, false},
		{-0.001, 0, true},
		{1.001, 0, true},
		{math.NaN(), 0, true},
	}

	for _, tt := range tests {
		raw, err := EmissivityRaw(tt.value)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidEmissivity, "value %v", tt.value)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.raw, raw, "value %v", tt.value)
	}
}

func TestEncodeSetLaser(t *testing.T) {
	assert.Equal(t, []byte{0x90, 0x01}, EncodeSetLaser(true).Bytes())
	assert.Equal(t, []byte{0x90, 0x00}, EncodeSetLaser(false).Bytes())

	frame := EncodeSetLaser(true)
	assert.NoError(t, VerifyEcho(frame, []byte{0x01}))
	assert.ErrorIs(t, VerifyEcho(frame, []byte{0x00}), ErrAckMismatch)
}

func TestDecodeTemperature(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want float64
	}{
		{"900 degrees", []byte{0x27, 0x10}, 900.0},
		{"zero", []byte{0x03, 0xE8}, 0.0},
		{"below zero", []byte{0x03, 0xDE}, -1.0},
		{"room", []byte{0x04, 0xE5}, 25.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, op := range []Operation{OpTargetTemperature, OpHeadTemperature, OpCurrentTargetTemperature} {
				got, err := DecodeTemperature(op, tt.resp)
				require.NoError(t, err)
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}

	_, err := DecodeTemperature(OpReadLaser, []byte{0x01})
	assert.Error(t, err)
}

func TestDecodeSerialNumber(t *testing.T) {
	got, err := DecodeSerialNumber([]byte{0x01, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), got)

	got, err = DecodeSerialNumber([]byte{0x12, 0x34, 0x56})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x123456), got)
}

func TestDecodeLaser(t *testing.T) {
	on, err := DecodeLaser([]byte{0x01})
	require.NoError(t, err)
	assert.True(t, on)

	on, err = DecodeLaser([]byte{0x00})
	require.NoError(t, err)
	assert.False(t, on)

	on, err = DecodeLaser([]byte{0x02})
	require.NoError(t, err)
	assert.False(t, on)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	tests := []struct {
		name    string
		decode  func() error
		timeout bool
		short   bool
	}{
		{"serial empty", func() error { _, err := DecodeSerialNumber(nil); return err }, true, true},
		{"serial two bytes", func() error { _, err := DecodeSerialNumber([]byte{1, 0}); return err }, false, true},
		{"temperature one byte", func() error { _, err := DecodeTemperature(OpTargetTemperature, []byte{0x27}); return err }, false, true},
		{"emissivity empty", func() error { _, err := DecodeEmissivity([]byte{}); return err }, true, true},
		{"laser empty", func() error { _, err := DecodeLaser(nil); return err }, true, true},
		{"laser echo empty", func() error { return VerifyEcho(EncodeSetLaser(true), nil) }, true, true},
		{"temperature three bytes", func() error { _, err := DecodeTemperature(OpHeadTemperature, []byte{1, 2, 3}); return err }, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode()
			require.Error(t, err)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.short, errors.Is(err, ErrShortRead))
			assert.Equal(t, tt.timeout, errors.Is(err, ErrTimeout))
			assert.Equal(t, !tt.short, errors.Is(err, ErrFrameTooLong))
			assert.False(t, errors.Is(err, ErrAckMismatch))
		})
	}
}
